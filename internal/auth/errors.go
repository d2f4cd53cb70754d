package auth

import (
	"errors"
	"strings"

	"storefront/internal/notify"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrEmailTaken         = errors.New("Email already registered")
	ErrPhoneTaken         = errors.New("Phone already registered")
	ErrUserNotFound       = errors.New("User not found.")
	ErrInvalidCredentials = errors.New("Invalid credentials")

	ErrAlreadyVerified = errors.New("User already verified.")
	ErrInvalidOTP      = errors.New("Invalid email OTP.")
	ErrOTPExpired      = errors.New("Email OTP has expired.")

	ErrNoToken        = errors.New("Not authorized, no token")
	ErrTokenInvalid   = errors.New("Not authorized, token failed")
	ErrSessionExpired = errors.New("Session expired or not authorized on this device")

	ErrInvalidOrExpiredToken = errors.New("Password reset token is invalid or has expired.")

	ErrNoGoogleAccount       = errors.New("No user found with this email.")
	ErrGoogleMismatch        = errors.New("Google ID mismatch and user not verified.")
	ErrInvalidGoogleAudience = errors.New("Google token was issued for another client")
	ErrGoogleEmailUnverified = errors.New("Google email is not verified")
	ErrGoogleUnavailable     = errors.New("Google sign-in is not configured")

	ErrSMSUnavailable = notify.ErrSMSUnavailable
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(e.Details, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(details ...string) error {
	return &ValidationError{Details: details}
}

var ErrInvalidPhoneOTP error = phoneOTPError{}

// phoneOTPError reads differently from ErrInvalidOTP but matches it.
type phoneOTPError struct{}

func (phoneOTPError) Error() string { return "Invalid phone OTP." }

func (phoneOTPError) Is(target error) bool { return target == ErrInvalidOTP }
