package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var AppEnv Config

type Config struct {
	Port            string        `env:"PORT" envDefault:"5000"`
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	MongoURI        string        `env:"MONGO_URI,required"`
	DBName          string        `env:"DB_NAME" envDefault:"storefront"`
	JWTSecret       string        `env:"JWT_SECRET,required"`
	FrontendURL     string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	GoogleClientID  string        `env:"GOOGLE_CLIENT_ID"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty       bool          `env:"LOG_PRETTY" envDefault:"false"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Factors   Factors
	SMTP      SMTPConfig      `envPrefix:"SMTP_"`
	Twilio    TwilioConfig    `envPrefix:"TWILIO_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// Load reads .env (when present) and the process environment into AppEnv.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg(".env not loaded")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cfg.Factors.Email = true
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	AppEnv = cfg
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be blank")
	}
	if c.SMTP.Enabled() {
		if err := c.SMTP.validate(); err != nil {
			return err
		}
	}
	if c.RateLimit.Max < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}
