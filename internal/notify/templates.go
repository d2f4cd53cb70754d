package notify

import (
	"fmt"
	"strings"
	"text/template"

	"storefront/internal/models"
)

var (
	otpTemplate = template.Must(template.New("otp").Parse(
		`Your {{if .Resent}}new {{end}}OTP code is: {{.Code}}

The code expires in {{.Minutes}} minutes.
`))

	resetTemplate = template.Must(template.New("reset").Parse(
		`You are receiving this email because you (or someone else) have requested the reset of the password for your account.

Please click on the following link, or paste this into your browser to complete the process within {{.Minutes}} minutes of receiving it:

{{.Link}}

If you did not request this, please ignore this email and your password will remain unchanged.
`))

	orderTemplate = template.Must(template.New("order").Funcs(template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}).Parse(
		`Hi {{.Billing.FirstName}},

Thank you for your order {{.ID.Hex}}.

{{range .Products}}{{.Quantity}} x {{.Title}} @ {{money .Price}}
{{end}}
Total: {{money .TotalPrice}}
Payment: {{.PaymentMethod}}

Delivery to {{.Billing.StreetAddress}}{{if .Billing.Apartment}}, {{.Billing.Apartment}}{{end}}, {{.Billing.Town}}
`))
)

func render(t *template.Template, data interface{}) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return b.String(), nil
}

// OTPEmail renders the verification code email. resent switches to the
// wording used by the resend endpoint.
func OTPEmail(code string, minutes int, resent bool) (Message, error) {
	body, err := render(otpTemplate, struct {
		Code    string
		Minutes int
		Resent  bool
	}{code, minutes, resent})
	if err != nil {
		return Message{}, err
	}

	subject := "Your OTP Code"
	if resent {
		subject = "Your OTP Code (Resent)"
	}
	return Message{Subject: subject, Body: body}, nil
}

func PasswordResetEmail(link string, minutes int) (Message, error) {
	body, err := render(resetTemplate, struct {
		Link    string
		Minutes int
	}{link, minutes})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Password Reset Request", Body: body}, nil
}

func SubscriptionEmail() Message {
	return Message{
		Subject: "Subscription Confirmation",
		Body:    "Thank you for subscribing to our newsletter!",
	}
}

func OrderConfirmationEmail(order models.Order) (Message, error) {
	body, err := render(orderTemplate, order)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Order Confirmation", Body: body}, nil
}
