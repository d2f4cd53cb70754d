package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name               string             `bson:"name" json:"name"`
	Description        string             `bson:"description,omitempty" json:"description,omitempty"`
	Image              string             `bson:"image,omitempty" json:"image,omitempty"`
	OriginalPrice      float64            `bson:"originalPrice" json:"originalPrice"`
	DiscountedPrice    float64            `bson:"discountedPrice,omitempty" json:"discountedPrice,omitempty"`
	DiscountPercentage float64            `bson:"discountPercentage,omitempty" json:"discountPercentage,omitempty"`
	Reviews            int                `bson:"reviews,omitempty" json:"reviews,omitempty"`
	CategoryID         StringList         `bson:"categoryid" json:"categoryid"`
	Price              float64            `bson:"-" json:"price"`
	IsOnSale           bool               `bson:"-" json:"isOnSale"`
}
