package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storefront/internal/auth"
	"storefront/internal/store"
)

// respondError maps domain errors onto HTTP statuses. Anything unknown is
// logged and reported as a 500 without leaking the cause.
func respondError(c *gin.Context, route string, err error) {
	var validationErr *auth.ValidationError
	switch {
	case errors.As(err, &validationErr):
		if len(validationErr.Details) == 1 {
			respondWithError(c, http.StatusBadRequest, route, validationErr.Details[0])
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   auth.ErrValidation.Error(),
			"details": validationErr.Details,
		})
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrPhoneTaken),
		errors.Is(err, store.ErrDuplicate):
		respondWithError(c, http.StatusConflict, route, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		respondWithError(c, http.StatusNotFound, route, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNoGoogleAccount),
		errors.Is(err, auth.ErrGoogleMismatch),
		errors.Is(err, auth.ErrInvalidGoogleAudience),
		errors.Is(err, auth.ErrGoogleEmailUnverified),
		errors.Is(err, auth.ErrNoToken),
		errors.Is(err, auth.ErrSessionExpired):
		respondWithError(c, http.StatusUnauthorized, route, err.Error())
	case errors.Is(err, auth.ErrTokenInvalid):
		respondWithError(c, http.StatusUnauthorized, route, auth.ErrTokenInvalid.Error())
	case errors.Is(err, auth.ErrAlreadyVerified),
		errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, auth.ErrOTPExpired),
		errors.Is(err, auth.ErrInvalidOrExpiredToken):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, store.ErrEmptyCart):
		respondWithError(c, http.StatusBadRequest, route, "Cart is empty")
	case errors.Is(err, auth.ErrGoogleUnavailable):
		respondWithError(c, http.StatusServiceUnavailable, route, err.Error())
	case errors.Is(err, auth.ErrSMSUnavailable):
		routeLogger(c, route).Error().Err(err).Msg("sms verification unavailable")
		respondWithError(c, http.StatusInternalServerError, route, err.Error())
	default:
		routeLogger(c, route).Error().Err(err).Msg("request failed")
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "oneof":
				details = append(details, fmt.Sprintf("%s must be one of: %s", field, fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
