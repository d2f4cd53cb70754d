package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/store"
)

type productPayload struct {
	Product *models.ProductSnapshot `json:"product"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func respondCartError(c *gin.Context, route string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, "User not found")
	case errors.Is(err, store.ErrItemNotFound):
		respondWithError(c, http.StatusNotFound, route, "Item not found in cart")
	default:
		respondError(c, route, err)
	}
}

func GetCart(carts store.CartRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/cart"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		cart, err := carts.Get(ctx, currentUserID(c))
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// AddToCart bumps the quantity when the product is already in the cart.
func AddToCart(carts store.CartRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart"
		defer handlePanic(c, route)

		var req productPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Product == nil || strings.TrimSpace(req.Product.ProductID) == "" {
			respondWithError(c, http.StatusBadRequest, route, "Invalid product data")
			return
		}
		req.Product.ProductID = strings.TrimSpace(req.Product.ProductID)

		ctx, cancel := requestContext(c)
		defer cancel()

		cart, err := carts.Add(ctx, currentUserID(c), *req.Product)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, cart)
	}
}

func RemoveFromCart(carts store.CartRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/remove/:productId"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		cart, err := carts.Remove(ctx, currentUserID(c), c.Param("productId"))
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart", "cart": cart})
	}
}

func UpdateCartQuantity(carts store.CartRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/cart/update/:productId"
		defer handlePanic(c, route)

		var req quantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Quantity < 1 {
			respondWithError(c, http.StatusBadRequest, route, "Quantity must be at least 1")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		cart, err := carts.SetQuantity(ctx, currentUserID(c), c.Param("productId"), req.Quantity)
		if err != nil {
			respondCartError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func ClearCart(carts store.CartRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/clear"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := carts.Clear(ctx, currentUserID(c)); err != nil {
			respondCartError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared successfully"})
	}
}
