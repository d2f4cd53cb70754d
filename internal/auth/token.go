package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const TokenTTL = 48 * time.Hour

// Claims is the JWT payload. SessionID is empty for tokens minted at signup
// and password reset.
type Claims struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: TokenTTL, now: time.Now}
}

func (t *TokenIssuer) Issue(userID primitive.ObjectID, sessionID string) (string, error) {
	now := t.now()
	claims := Claims{
		UserID:    userID.Hex(),
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// TokenSubject is what a verified token says about its bearer.
type TokenSubject struct {
	UserID    primitive.ObjectID
	SessionID string
}

// Parse verifies signature and expiry. Every failure is ErrTokenInvalid.
func (t *TokenIssuer) Parse(raw string) (TokenSubject, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return TokenSubject{}, errors.Join(ErrTokenInvalid, err)
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return TokenSubject{}, ErrTokenInvalid
	}
	return TokenSubject{UserID: userID, SessionID: claims.SessionID}, nil
}
