package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/store"
)

// EmailSender delivers transactional mail.
type EmailSender interface {
	SendEmail(ctx context.Context, to string, msg notify.Message) error
}

type createOrderRequest struct {
	FirstName     string `json:"firstName" binding:"required"`
	StreetAddress string `json:"streetAddress" binding:"required"`
	Town          string `json:"town" binding:"required"`
	Apartment     string `json:"apartment"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Payment       string `json:"payment" binding:"required,oneof=cod bank"`
}

func (r createOrderRequest) billing() models.Billing {
	return models.Billing{
		FirstName:     strings.TrimSpace(r.FirstName),
		StreetAddress: strings.TrimSpace(r.StreetAddress),
		Town:          strings.TrimSpace(r.Town),
		Apartment:     strings.TrimSpace(r.Apartment),
		Phone:         strings.TrimSpace(r.Phone),
		Email:         strings.TrimSpace(r.Email),
	}
}

// PlaceOrder checks out the caller's cart. Prices come from the catalog, not
// from the cart snapshot.
func PlaceOrder(orders store.OrderRepository, mail EmailSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order"
		defer handlePanic(c, route)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.PlaceFromCart(ctx, currentUserID(c), req.billing(), req.Payment)
		if err != nil {
			var missing store.ProductMissingError
			switch {
			case errors.As(err, &missing):
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"error":     "Product not found",
					"productId": missing.ProductID,
				})
			case errors.Is(err, store.ErrNotFound):
				respondWithError(c, http.StatusNotFound, route, "User not found")
			default:
				respondError(c, route, err)
			}
			return
		}

		logger := routeLogger(c, route)
		logger.Info().Str("orderId", order.ID.Hex()).Float64("total", order.TotalPrice).Msg("order placed")

		recipient := order.Billing.Email
		if recipient == "" {
			recipient = c.GetString("email")
		}
		if recipient != "" {
			msg, err := notify.OrderConfirmationEmail(*order)
			if err == nil {
				err = mail.SendEmail(ctx, recipient, msg)
			}
			if err != nil {
				logger.Warn().Err(err).Str("orderId", order.ID.Hex()).Msg("order confirmation not sent")
			}
		}

		c.JSON(http.StatusCreated, gin.H{
			"orderId":    order.ID.Hex(),
			"message":    "Order placed successfully",
			"totalPrice": order.TotalPrice,
		})
	}
}

func GetMyOrders(orders store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := orders.ListByUser(ctx, currentUserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetUserOrders only serves the caller's own history.
func GetUserOrders(orders store.OrderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:userId"
		defer handlePanic(c, route)

		userID := currentUserID(c)
		if c.Param("userId") != userID.Hex() {
			respondWithError(c, http.StatusForbidden, route, "Not authorized to view these orders")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := orders.ListByUser(ctx, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
