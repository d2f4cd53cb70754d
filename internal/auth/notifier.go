package auth

import (
	"context"

	"storefront/internal/notify"
)

// Notifier delivers OTP and reset messages. SMS codes are generated and
// checked by the provider.
type Notifier interface {
	SendEmail(ctx context.Context, to string, msg notify.Message) error
	SendSMS(ctx context.Context, phone string) error
	VerifySMS(ctx context.Context, phone, code string) (bool, error)
}
