package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var ErrSMSUnavailable = errors.New("SMS verification is not configured")

// Notifier routes email to the Mailer and phone verification to the
// SMSVerifier. Either may be nil: mail is then only logged and SMS calls fail
// with ErrSMSUnavailable.
type Notifier struct {
	mailer *Mailer
	sms    SMSVerifier
	logger zerolog.Logger
}

func NewNotifier(mailer *Mailer, sms SMSVerifier, logger zerolog.Logger) *Notifier {
	return &Notifier{mailer: mailer, sms: sms, logger: logger}
}

func (n *Notifier) SendEmail(ctx context.Context, to string, msg Message) error {
	if n.mailer == nil {
		// Bodies carry OTP codes and reset links, so they stay at debug.
		n.logger.Info().
			Str("to", to).
			Str("subject", msg.Subject).
			Msg("smtp disabled, email not sent")
		n.logger.Debug().
			Str("to", to).
			Str("body", msg.Body).
			Msg("unsent email body")
		return nil
	}
	return n.mailer.Send(ctx, to, msg)
}

func (n *Notifier) SendSMS(ctx context.Context, phone string) error {
	if n.sms == nil {
		return ErrSMSUnavailable
	}
	return n.sms.SendCode(ctx, phone)
}

func (n *Notifier) VerifySMS(ctx context.Context, phone, code string) (bool, error) {
	if n.sms == nil {
		return false, ErrSMSUnavailable
	}
	return n.sms.CheckCode(ctx, phone, code)
}
