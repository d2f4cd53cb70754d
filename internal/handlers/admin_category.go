package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

/*
GET /api/admin/categories
*/
func GetAllCategories(categories store.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/categories"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := categories.List(ctx)
		if err != nil {
			respondError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": list,
		})
	}
}

/*
POST /api/admin/categories
- names are stored lower-case and must be unique
*/
func CreateCategory(categories store.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/categories"
		defer handlePanic(c, route)

		var req CategoryCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		name := strings.ToLower(strings.TrimSpace(req.Name))
		if name == "" {
			respondWithError(c, http.StatusBadRequest, route, "name required")
			return
		}

		category := models.Category{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := categories.Create(ctx, &category); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				respondWithError(c, http.StatusConflict, route, "category already exists")
				return
			}
			respondError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, category)
	}
}

/*
DELETE /api/admin/categories/:id
*/
func DeleteCategory(categories store.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/categories/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := categories.Delete(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "category not found")
				return
			}
			respondError(c, route, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
