package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleIdentity is the account asserted by a verified Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleIdentity, error)
}

// TokeninfoVerifier checks ID tokens against Google's tokeninfo endpoint and
// requires them to be issued for clientID.
type TokeninfoVerifier struct {
	clientID string
	service  *oauth2.Service
}

func NewTokeninfoVerifier(ctx context.Context, clientID string, opts ...option.ClientOption) (*TokeninfoVerifier, error) {
	opts = append([]option.ClientOption{
		option.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
	}, opts...)

	service, err := oauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create oauth2 service: %w", err)
	}
	return &TokeninfoVerifier{clientID: clientID, service: service}, nil
}

func (v *TokeninfoVerifier) Verify(ctx context.Context, idToken string) (GoogleIdentity, error) {
	info, err := v.service.Tokeninfo().IdToken(idToken).Context(ctx).Do()
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if info.Audience != v.clientID {
		return GoogleIdentity{}, ErrInvalidGoogleAudience
	}
	return GoogleIdentity{
		Subject:       info.UserId,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
	}, nil
}
