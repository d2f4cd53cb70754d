package handlers

import (
	"fmt"

	"storefront/internal/models"
)

type priceUpdateInput struct {
	OriginalPrice   *float64
	DiscountedPrice *float64
}

type priceUpdateResult struct {
	OriginalPrice      float64
	DiscountedPrice    float64
	DiscountPercentage float64
	Changed            bool
}

// validatePricing treats a zero discountedPrice as "not on sale".
func validatePricing(originalPrice, discountedPrice float64) error {
	if originalPrice <= 0 {
		return fmt.Errorf("originalPrice must be greater than 0")
	}
	if discountedPrice < 0 {
		return fmt.Errorf("discountedPrice must be zero or greater")
	}
	if discountedPrice > 0 && discountedPrice >= originalPrice {
		return fmt.Errorf("discountedPrice must be less than originalPrice")
	}
	return nil
}

func resolvePriceUpdate(existingOriginal, existingDiscounted float64, input priceUpdateInput) (priceUpdateResult, error) {
	result := priceUpdateResult{
		OriginalPrice:   existingOriginal,
		DiscountedPrice: existingDiscounted,
	}

	if input.OriginalPrice != nil {
		result.OriginalPrice = *input.OriginalPrice
		result.Changed = true
	}
	if input.DiscountedPrice != nil {
		result.DiscountedPrice = *input.DiscountedPrice
		result.Changed = true
	}

	if err := validatePricing(result.OriginalPrice, result.DiscountedPrice); err != nil {
		return priceUpdateResult{}, err
	}

	result.DiscountPercentage = models.DiscountPercentage(result.OriginalPrice, result.DiscountedPrice)
	return result, nil
}
