package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

/* =======================
   REQUEST MODELS
======================= */

type productRequest struct {
	Name            *string   `json:"name"`
	Description     *string   `json:"description"`
	Image           *string   `json:"image"`
	OriginalPrice   *float64  `json:"originalPrice"`
	DiscountedPrice *float64  `json:"discountedPrice"`
	Reviews         *int      `json:"reviews"`
	CategoryIDs     *[]string `json:"categoryid"`
}

/* =======================
   HELPERS
======================= */

func normalizeCategories(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)

	for _, v := range values {
		name := strings.TrimSpace(v)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func sanitizeLogValue(value string, max int) string {
	trimmed := strings.TrimSpace(value)
	if max <= 0 {
		max = 80
	}
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max] + "..."
}

func mapKeys(input map[string]interface{}) []string {
	keys := make([]string, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

/* =======================
   CREATE
======================= */

func CreateProduct(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/products"
		defer handlePanic(c, route)

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		name := stringValue(req.Name)
		if name == "" {
			respondWithError(c, http.StatusBadRequest, route, "name required")
			return
		}
		if req.OriginalPrice == nil {
			respondWithError(c, http.StatusBadRequest, route, "originalPrice required")
			return
		}

		pricing, err := resolvePriceUpdate(0, 0, priceUpdateInput{
			OriginalPrice:   req.OriginalPrice,
			DiscountedPrice: req.DiscountedPrice,
		})
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if req.Reviews != nil && *req.Reviews < 0 {
			respondWithError(c, http.StatusBadRequest, route, "reviews must be zero or greater")
			return
		}

		product := models.Product{
			Name:               name,
			Description:        stringValue(req.Description),
			Image:              stringValue(req.Image),
			OriginalPrice:      pricing.OriginalPrice,
			DiscountedPrice:    pricing.DiscountedPrice,
			DiscountPercentage: pricing.DiscountPercentage,
			CategoryID:         models.StringList{},
		}
		if req.Reviews != nil {
			product.Reviews = *req.Reviews
		}
		if req.CategoryIDs != nil {
			product.CategoryID = models.StringList(normalizeCategories(*req.CategoryIDs))
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := products.Create(ctx, &product); err != nil {
			respondError(c, route, err)
			return
		}

		routeLogger(c, route).Info().
			Str("productId", product.ID.Hex()).
			Str("name", sanitizeLogValue(product.Name, 80)).
			Msg("product created")
		c.JSON(http.StatusCreated, product)
	}
}

/* =======================
   UPDATE
======================= */

func UpdateProduct(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/admin/products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		existing, err := products.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondError(c, route, err)
			return
		}

		updateSet := map[string]interface{}{}

		if req.Name != nil {
			name := stringValue(req.Name)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "name required")
				return
			}
			updateSet["name"] = name
		}
		if req.Description != nil {
			updateSet["description"] = stringValue(req.Description)
		}
		if req.Image != nil {
			updateSet["image"] = stringValue(req.Image)
		}
		if req.Reviews != nil {
			if *req.Reviews < 0 {
				respondWithError(c, http.StatusBadRequest, route, "reviews must be zero or greater")
				return
			}
			updateSet["reviews"] = *req.Reviews
		}
		if req.CategoryIDs != nil {
			updateSet["categoryid"] = models.StringList(normalizeCategories(*req.CategoryIDs))
		}

		pricing, err := resolvePriceUpdate(existing.OriginalPrice, existing.DiscountedPrice, priceUpdateInput{
			OriginalPrice:   req.OriginalPrice,
			DiscountedPrice: req.DiscountedPrice,
		})
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		if pricing.Changed {
			updateSet["originalPrice"] = pricing.OriginalPrice
			updateSet["discountedPrice"] = pricing.DiscountedPrice
			updateSet["discountPercentage"] = pricing.DiscountPercentage
		}

		if len(updateSet) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		updated, err := products.Update(ctx, id, updateSet)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondError(c, route, err)
			return
		}

		routeLogger(c, route).Info().
			Str("productId", id.Hex()).
			Strs("fields", mapKeys(updateSet)).
			Msg("product updated")
		c.JSON(http.StatusOK, updated)
	}
}

/* =======================
   DELETE
======================= */

func DeleteProduct(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := products.Delete(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondError(c, route, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
