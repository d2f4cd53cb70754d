package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/store"
)

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
}

// Subscribe registers the caller's address for the newsletter.
func Subscribe(subscriptions store.SubscriptionRepository, mail EmailSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/subscribe"
		defer handlePanic(c, route)

		email := c.GetString("email")

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := subscriptions.Subscribe(ctx, email); err != nil {
			routeLogger(c, route).Error().Err(err).Msg("subscribe failed")
			respondWithError(c, http.StatusInternalServerError, route, "Failed to subscribe and send email.")
			return
		}
		if err := mail.SendEmail(ctx, email, notify.SubscriptionEmail()); err != nil {
			routeLogger(c, route).Error().Err(err).Msg("subscription email failed")
			respondWithError(c, http.StatusInternalServerError, route, "Failed to subscribe and send email.")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Subscribed successfully! Confirmation email sent."})
	}
}

func SubmitContact(contacts store.ContactRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/contact"
		defer handlePanic(c, route)

		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		msg := models.ContactMessage{
			Name:      strings.TrimSpace(req.Name),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Message:   strings.TrimSpace(req.Message),
			CreatedAt: time.Now(),
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := contacts.Create(ctx, &msg); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Message sent successfully"})
	}
}
