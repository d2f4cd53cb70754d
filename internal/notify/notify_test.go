package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/gomail.v2"

	"storefront/internal/config"
	"storefront/internal/models"
)

type fakeSMS struct {
	sent    []string
	approve bool
}

func (f *fakeSMS) SendCode(_ context.Context, phone string) error {
	f.sent = append(f.sent, phone)
	return nil
}

func (f *fakeSMS) CheckCode(_ context.Context, _, _ string) (bool, error) {
	return f.approve, nil
}

func TestOTPEmail(t *testing.T) {
	msg, err := OTPEmail("123456", 10, false)
	require.NoError(t, err)
	assert.Equal(t, "Your OTP Code", msg.Subject)
	assert.Contains(t, msg.Body, "Your OTP code is: 123456")
	assert.Contains(t, msg.Body, "10 minutes")

	msg, err = OTPEmail("654321", 10, true)
	require.NoError(t, err)
	assert.Equal(t, "Your OTP Code (Resent)", msg.Subject)
	assert.Contains(t, msg.Body, "Your new OTP code is: 654321")
}

func TestPasswordResetEmailStatesWindow(t *testing.T) {
	msg, err := PasswordResetEmail("http://shop.test/reset-password/abc", 10)
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "http://shop.test/reset-password/abc")
	assert.Contains(t, msg.Body, "within 10 minutes")
	assert.NotContains(t, msg.Body, "one hour")
}

func TestOrderConfirmationEmail(t *testing.T) {
	order := models.Order{
		ID:            primitive.NewObjectID(),
		Billing:       models.Billing{FirstName: "Ada", StreetAddress: "1 Main St", Town: "Springfield"},
		Products:      []models.OrderItem{{Title: "Keyboard", Price: 49.5, Quantity: 2}},
		TotalPrice:    99,
		PaymentMethod: models.PaymentCashOnDelivery,
	}

	msg, err := OrderConfirmationEmail(order)
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Hi Ada")
	assert.Contains(t, msg.Body, "2 x Keyboard @ 49.50")
	assert.Contains(t, msg.Body, "Total: 99.00")
	assert.Contains(t, msg.Body, order.ID.Hex())
}

func TestMailerSend(t *testing.T) {
	m := NewMailer(config.SMTPConfig{Host: "smtp.test", Port: 587, From: "shop@test"}, zerolog.Nop())

	var sent *gomail.Message
	m.send = func(msg *gomail.Message) error {
		sent = msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "a@b.com", Message{Subject: "Hi", Body: "hello"}))
	require.NotNil(t, sent)
	assert.Equal(t, []string{"a@b.com"}, sent.GetHeader("To"))
	assert.Equal(t, []string{"shop@test"}, sent.GetHeader("From"))

	assert.Error(t, m.Send(context.Background(), "", Message{}))

	m.send = func(*gomail.Message) error { return errors.New("relay down") }
	assert.ErrorContains(t, m.Send(context.Background(), "a@b.com", Message{}), "relay down")
}

func TestNotifierWithoutSMTPLogsMail(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(nil, nil, zerolog.New(&buf).Level(zerolog.InfoLevel))

	require.NoError(t, n.SendEmail(context.Background(), "a@b.com", Message{Subject: "Your OTP Code", Body: "123456"}))
	assert.Contains(t, buf.String(), "Your OTP Code")
	assert.Contains(t, buf.String(), "a@b.com")
	assert.NotContains(t, buf.String(), "123456")

	buf.Reset()
	n = NewNotifier(nil, nil, zerolog.New(&buf).Level(zerolog.DebugLevel))
	require.NoError(t, n.SendEmail(context.Background(), "a@b.com", Message{Subject: "Your OTP Code", Body: "123456"}))
	assert.Contains(t, buf.String(), "123456")
}

func TestNotifierSMS(t *testing.T) {
	n := NewNotifier(nil, nil, zerolog.Nop())
	assert.ErrorIs(t, n.SendSMS(context.Background(), "+15550100"), ErrSMSUnavailable)
	_, err := n.VerifySMS(context.Background(), "+15550100", "1234")
	assert.ErrorIs(t, err, ErrSMSUnavailable)

	sms := &fakeSMS{approve: true}
	n = NewNotifier(nil, sms, zerolog.Nop())
	require.NoError(t, n.SendSMS(context.Background(), "+15550100"))
	assert.Equal(t, []string{"+15550100"}, sms.sent)

	ok, err := n.VerifySMS(context.Background(), "+15550100", "1234")
	require.NoError(t, err)
	assert.True(t, ok)
}
