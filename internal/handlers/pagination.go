package handlers

import (
	"errors"
	"math"
	"strconv"
)

const (
	defaultPageLimit = 200
	maxPageLimit     = 1000
)

var (
	errInvalidPagination = errors.New("page and limit must be positive integers")
	errPageLimitTooLarge = errors.New("limit must not exceed 1000")
	errPageOutOfRange    = errors.New("page is out of range")
)

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(defaultPageLimit)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errInvalidPagination
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, errInvalidPagination
		}
		if l > maxPageLimit {
			return 0, 0, errPageLimitTooLarge
		}
		limit = l
	}

	if page-1 > math.MaxInt64/limit {
		return 0, 0, errPageOutOfRange
	}

	return page, limit, nil
}

type pagination struct {
	CurrentPage     int64 `json:"currentPage"`
	TotalPages      int64 `json:"totalPages"`
	TotalProducts   int64 `json:"totalProducts"`
	ProductsPerPage int64 `json:"productsPerPage"`
}

func newPagination(page, limit, total int64) pagination {
	return pagination{
		CurrentPage:     page,
		TotalPages:      int64(math.Ceil(float64(total) / float64(limit))),
		TotalProducts:   total,
		ProductsPerPage: limit,
	}
}
