package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentCashOnDelivery = "cod"
	PaymentBankTransfer   = "bank"

	OrderStatusPending = "pending"
)

// OrderItem represents a single product entry within an order.
type OrderItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Title     string  `bson:"title" json:"title"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

// Billing captures the delivery and contact details entered at checkout.
type Billing struct {
	FirstName     string `bson:"firstName" json:"firstName"`
	StreetAddress string `bson:"streetAddress" json:"streetAddress"`
	Town          string `bson:"town" json:"town"`
	Apartment     string `bson:"apartment" json:"apartment"`
	Phone         string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email         string `bson:"email,omitempty" json:"email,omitempty"`
}

// Order defines the persisted order document.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Billing       Billing            `bson:",inline" json:"billing"`
	Products      []OrderItem        `bson:"products" json:"products"`
	TotalPrice    float64            `bson:"totalPrice" json:"totalPrice"`
	PaymentMethod string             `bson:"paymentMethod" json:"paymentMethod"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
