package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"

	"storefront/internal/config"
)

const verificationApproved = "approved"

// SMSVerifier starts and checks phone verifications. The provider generates
// and stores the code.
type SMSVerifier interface {
	SendCode(ctx context.Context, phone string) error
	CheckCode(ctx context.Context, phone, code string) (bool, error)
}

// TwilioVerifier is an SMSVerifier backed by the Twilio Verify v2 API.
type TwilioVerifier struct {
	client     *twilio.RestClient
	serviceSID string
}

func NewTwilioVerifier(cfg config.TwilioConfig) *TwilioVerifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioVerifier{client: client, serviceSID: cfg.VerifyServiceSID}
}

func (v *TwilioVerifier) SendCode(ctx context.Context, phone string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	if _, err := v.client.VerifyV2.CreateVerification(v.serviceSID, params); err != nil {
		return fmt.Errorf("start sms verification: %w", err)
	}
	return nil
}

func (v *TwilioVerifier) CheckCode(ctx context.Context, phone, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	resp, err := v.client.VerifyV2.CreateVerificationCheck(v.serviceSID, params)
	if err != nil {
		return false, fmt.Errorf("check sms verification: %w", err)
	}
	return resp.Status != nil && *resp.Status == verificationApproved, nil
}
