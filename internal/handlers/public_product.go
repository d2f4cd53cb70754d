package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/store"
)

// productFilterFromQuery reads the catalog query string shared by the
// listing, search and category routes.
func productFilterFromQuery(c *gin.Context) (store.ProductFilter, error) {
	page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		return store.ProductFilter{}, err
	}

	filter := store.ProductFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
		SortBy:   "name",
		SortDesc: strings.EqualFold(c.Query("sortOrder"), "desc"),
		Page:     page,
		Limit:    limit,
	}
	if sortBy := c.Query("sortBy"); store.SortableProductFields[sortBy] {
		filter.SortBy = sortBy
	}
	if filter.MinPrice, err = parsePriceParam(c.Query("minPrice")); err != nil {
		return store.ProductFilter{}, err
	}
	if filter.MaxPrice, err = parsePriceParam(c.Query("maxPrice")); err != nil {
		return store.ProductFilter{}, err
	}
	return filter, nil
}

var errInvalidPrice = errors.New("minPrice and maxPrice must be non-negative numbers")

func parsePriceParam(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, errInvalidPrice
	}
	return v, nil
}

func listProducts(c *gin.Context, route string, products store.ProductRepository, filter store.ProductFilter) {
	ctx, cancel := requestContext(c)
	defer cancel()

	items, total, err := products.List(ctx, filter)
	if err != nil {
		respondError(c, route, err)
		return
	}

	routeLogger(c, route).Debug().Int("count", len(items)).Int64("total", total).Msg("returning products")
	c.JSON(http.StatusOK, gin.H{
		"products":   items,
		"pagination": newPagination(filter.Page, filter.Limit, total),
	})
}

/*
GET /api/products
- page defaults to 1, limit to 200
- sortBy falls back to name
*/
func GetProducts(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		filter, err := productFilterFromQuery(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		listProducts(c, route, products, filter)
	}
}

func SearchProducts(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/search"
		defer handlePanic(c, route)

		term := strings.TrimSpace(c.Query("q"))
		if term == "" {
			respondWithError(c, http.StatusBadRequest, route, "Search term is required")
			return
		}

		filter, err := productFilterFromQuery(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		filter.Search = term
		listProducts(c, route, products, filter)
	}
}

func GetProductsByCategory(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/category/:category"
		defer handlePanic(c, route)

		filter, err := productFilterFromQuery(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		filter.Category = strings.TrimSpace(c.Param("category"))
		listProducts(c, route, products, filter)
	}
}

// GetProductsBulk skips ids that are not valid ObjectIDs.
func GetProductsBulk(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/bulk"
		defer handlePanic(c, route)

		ids := make([]primitive.ObjectID, 0)
		for _, raw := range strings.Split(c.Query("ids"), ",") {
			id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			c.JSON(http.StatusOK, []struct{}{})
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		items, err := products.FindByIDs(ctx, ids)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func GetProductByID(products store.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Invalid product id")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := products.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
