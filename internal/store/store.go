// Package store holds the persistence contracts for the storefront and their
// MongoDB implementations.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrAlreadyPresent is returned when an item with the same productId is
	// already in a wishlist.
	ErrAlreadyPresent = errors.New("item already present")
	ErrItemNotFound   = errors.New("item not found")
	ErrEmptyCart      = errors.New("cart is empty")
)

// ProductMissingError names the cart entry whose product no longer exists.
type ProductMissingError struct {
	ProductID string
}

func (e ProductMissingError) Error() string {
	return "product not found: " + e.ProductID
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)

	SetOTP(ctx context.Context, id primitive.ObjectID, code string, expires time.Time) error
	// ConsumeOTP marks the user verified and clears the code, but only if
	// code is still the stored one and the user is unverified.
	ConsumeOTP(ctx context.Context, id primitive.ObjectID, code string) (bool, error)
	// RecordOTPFailure counts a wrong code. Once max failures accumulate the
	// stored code is cleared and true is returned.
	RecordOTPFailure(ctx context.Context, id primitive.ObjectID, max int) (bool, error)

	// PushSession appends session and keeps only the newest max entries,
	// ordered by createdAt, in a single write.
	PushSession(ctx context.Context, id primitive.ObjectID, session models.Session, max int) error
	RemoveSession(ctx context.Context, id primitive.ObjectID, sessionID string) error

	AddCredential(ctx context.Context, id primitive.ObjectID, cred models.Credential) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error

	SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
}

type CartRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, error)
	// Add increments the quantity of an existing entry or appends item with
	// quantity 1.
	Add(ctx context.Context, userID primitive.ObjectID, item models.ProductSnapshot) ([]models.CartItem, error)
	Remove(ctx context.Context, userID primitive.ObjectID, productID string) ([]models.CartItem, error)
	SetQuantity(ctx context.Context, userID primitive.ObjectID, productID string, quantity int) ([]models.CartItem, error)
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type WishlistRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) ([]models.WishlistItem, error)
	Add(ctx context.Context, userID primitive.ObjectID, item models.ProductSnapshot) error
	Remove(ctx context.Context, userID primitive.ObjectID, productID string) error
	Contains(ctx context.Context, userID primitive.ObjectID, productID string) (bool, error)
}

// ProductFilter drives catalog listing. Zero values mean "no constraint".
type ProductFilter struct {
	Category string
	Search   string
	MinPrice float64
	MaxPrice float64
	SortBy   string
	SortDesc bool
	Page     int64
	Limit    int64
}

type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type OrderRepository interface {
	// PlaceFromCart prices the user's cart against the catalog, stores the
	// order and empties the cart atomically.
	PlaceFromCart(ctx context.Context, userID primitive.ObjectID, billing models.Billing, paymentMethod string) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type SubscriptionRepository interface {
	// Subscribe stores email once; repeated calls are no-ops.
	Subscribe(ctx context.Context, email string) error
}

type ContactRepository interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
}
