// Package notify delivers transactional email over SMTP and phone
// verification codes over Twilio Verify.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"storefront/internal/config"
)

// Message is a rendered email.
type Message struct {
	Subject string
	Body    string
}

// Mailer sends email through an SMTP relay.
type Mailer struct {
	from   string
	dialer *gomail.Dialer
	send   func(*gomail.Message) error
	logger zerolog.Logger
}

// NewMailer creates a Mailer for cfg. cfg must already be validated.
func NewMailer(cfg config.SMTPConfig, logger zerolog.Logger) *Mailer {
	dialer := gomail.NewDialer(
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
	)

	m := &Mailer{
		from:   cfg.From,
		dialer: dialer,
		logger: logger,
	}
	m.send = func(msg *gomail.Message) error {
		return m.dialer.DialAndSend(msg)
	}
	return m
}

// Send delivers a single email. gomail has no context support, so ctx is
// only checked before dialing.
func (m *Mailer) Send(ctx context.Context, to string, email Message) error {
	if to == "" {
		return fmt.Errorf("no recipients specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, to, email)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	m.logger.Debug().Str("to", to).Str("subject", email.Subject).Msg("email sent")
	return nil
}

func (m *Mailer) setEmailMessage(msg *gomail.Message, to string, email Message) {
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Body)
}
