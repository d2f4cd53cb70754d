package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Factors lists the channels a new account has to prove control of before it
// is verified. Email is always required.
type Factors struct {
	Email bool
	Phone bool `env:"AUTH_REQUIRE_PHONE" envDefault:"false"`
}

func (f Factors) RequiresPhone() bool {
	return f.Phone
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// Enabled reports whether mail should actually be sent. Without a host the
// notifier only logs outgoing messages.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

func (c SMTPConfig) validate() error {
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.Username == "" {
		return fmt.Errorf("missing SMTP_USERNAME environment variable")
	}
	if c.Password == "" {
		return fmt.Errorf("missing SMTP_PASSWORD environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}
	return nil
}

type TwilioConfig struct {
	AccountSID       string `env:"ACCOUNT_SID"`
	AuthToken        string `env:"AUTH_TOKEN"`
	VerifyServiceSID string `env:"VERIFY_SERVICE_SID"`
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.VerifyServiceSID != ""
}

type RedisConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type RateLimitConfig struct {
	Max    int64         `env:"MAX" envDefault:"10"`
	Window time.Duration `env:"WINDOW" envDefault:"15m"`
}
