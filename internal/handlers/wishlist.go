package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/store"
)

func respondWishlistError(c *gin.Context, route string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, "User not found")
	case errors.Is(err, store.ErrAlreadyPresent):
		respondWithError(c, http.StatusBadRequest, route, "Product already in wishlist")
	default:
		respondError(c, route, err)
	}
}

func GetWishlist(wishlists store.WishlistRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/wishlist"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		items, err := wishlists.Get(ctx, currentUserID(c))
		if err != nil {
			respondWishlistError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// AddToWishlist assigns a fresh productId when the client sends none.
func AddToWishlist(wishlists store.WishlistRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/wishlist"
		defer handlePanic(c, route)

		var req productPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Product == nil {
			respondWithError(c, http.StatusBadRequest, route, "Product information is required")
			return
		}
		product := *req.Product
		product.ProductID = strings.TrimSpace(product.ProductID)
		if product.ProductID == "" {
			product.ProductID = primitive.NewObjectID().Hex()
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := wishlists.Add(ctx, currentUserID(c), product); err != nil {
			respondWishlistError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product added to wishlist", "product": product})
	}
}

func RemoveFromWishlist(wishlists store.WishlistRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/wishlist/remove/:productId"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := wishlists.Remove(ctx, currentUserID(c), c.Param("productId")); err != nil {
			respondWishlistError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product removed from wishlist"})
	}
}

func CheckWishlist(wishlists store.WishlistRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/wishlist/check/:productId"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		found, err := wishlists.Contains(ctx, currentUserID(c), c.Param("productId"))
		if err != nil {
			respondWishlistError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"isWishlisted": found})
	}
}
