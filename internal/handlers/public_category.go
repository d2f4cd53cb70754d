package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/store"
)

type categorySummary struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func GetCategories(categories store.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/categories"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := categories.List(ctx)
		if err != nil {
			respondError(c, route, err)
			return
		}

		out := make([]categorySummary, 0, len(list))
		for _, category := range list {
			out = append(out, categorySummary{ID: category.ID.Hex(), Name: category.Name})
		}
		c.JSON(http.StatusOK, out)
	}
}
