package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront/internal/auth"
)

// Authenticator resolves an Authorization header to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (auth.Principal, error)
}

// UserAuth validates the bearer token and its session, then injects the
// caller into the gin and request contexts.
func UserAuth(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := zerolog.Ctx(c.Request.Context()).With().Str("component", "auth").Logger()

		principal, err := authenticator.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			status, message := http.StatusUnauthorized, ""
			switch {
			case errors.Is(err, auth.ErrNoToken):
				message = "Not authorized, no token"
			case errors.Is(err, auth.ErrTokenInvalid):
				message = "Not authorized, token failed"
			case errors.Is(err, auth.ErrUserNotFound):
				message = "Not authorized, user not found"
			case errors.Is(err, auth.ErrSessionExpired):
				message = "Session expired or not authorized on this device"
			default:
				status, message = http.StatusInternalServerError, "Server error in auth middleware"
				logger.Error().Err(err).Msg("authentication failed")
			}
			if status == http.StatusUnauthorized {
				logger.Debug().Err(err).Msg("request rejected")
			}
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}

		c.Set("userId", principal.UserID)
		c.Set("email", principal.Email)
		c.Set("role", principal.Role)
		c.Set("sessionId", principal.SessionID)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireRole must run after UserAuth.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		match := false
		for _, r := range allowedRoles {
			if role == r {
				match = true
				break
			}
		}
		if !match {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
