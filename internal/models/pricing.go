package models

import "math"

// IsOnSale reports whether a discounted price actually undercuts the list price.
func IsOnSale(originalPrice, discountedPrice float64) bool {
	return discountedPrice > 0 && discountedPrice < originalPrice
}

// EffectivePrice is the unit price a customer pays.
func EffectivePrice(originalPrice, discountedPrice float64) float64 {
	if IsOnSale(originalPrice, discountedPrice) {
		return discountedPrice
	}
	return originalPrice
}

// DiscountPercentage rounds the saving to a whole percent.
func DiscountPercentage(originalPrice, discountedPrice float64) float64 {
	if !IsOnSale(originalPrice, discountedPrice) {
		return 0
	}
	return math.Round((originalPrice - discountedPrice) / originalPrice * 100)
}

// Normalize fills the derived pricing fields.
func (p *Product) Normalize() {
	p.IsOnSale = IsOnSale(p.OriginalPrice, p.DiscountedPrice)
	p.Price = EffectivePrice(p.OriginalPrice, p.DiscountedPrice)
	if p.DiscountPercentage == 0 {
		p.DiscountPercentage = DiscountPercentage(p.OriginalPrice, p.DiscountedPrice)
	}
}
