package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Session is one authenticated login event. Tokens minted for it carry
// SessionID and stop working once the entry is evicted.
type Session struct {
	SessionID string    `bson:"sessionId" json:"sessionId"`
	UserAgent string    `bson:"userAgent" json:"userAgent"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// ProductSnapshot holds the display fields copied from a product when it is
// put into a cart or wishlist.
type ProductSnapshot struct {
	ProductID          string  `bson:"productId" json:"productId"`
	Image              string  `bson:"image" json:"image"`
	Title              string  `bson:"title" json:"title"`
	Price              float64 `bson:"price" json:"price"`
	OriginalPrice      float64 `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	Rating             float64 `bson:"rating,omitempty" json:"rating,omitempty"`
	ReviewCount        int     `bson:"reviewCount,omitempty" json:"reviewCount,omitempty"`
	DiscountPercentage float64 `bson:"discountPercentage,omitempty" json:"discountPercentage,omitempty"`
}

type CartItem struct {
	ProductSnapshot `bson:",inline"`
	Quantity        int `bson:"quantity" json:"quantity"`
}

type WishlistItem struct {
	ProductSnapshot `bson:",inline"`
}

// User represents the application user account.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role        string             `bson:"role" json:"role"`
	Credentials []Credential       `bson:"credentials" json:"-"`
	IsVerified  bool               `bson:"isVerified" json:"isVerified"`
	PhotoURL    string             `bson:"photoURL,omitempty" json:"photoURL,omitempty"`

	OTP         string     `bson:"otp,omitempty" json:"-"`
	OTPExpires  *time.Time `bson:"otpExpires,omitempty" json:"-"`
	OTPAttempts int        `bson:"otpAttempts,omitempty" json:"-"`

	ResetPasswordToken   string     `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpires *time.Time `bson:"resetPasswordExpires,omitempty" json:"-"`

	Sessions []Session      `bson:"sessions" json:"sessions"`
	Cart     []CartItem     `bson:"cart" json:"cart"`
	Wishlist []WishlistItem `bson:"wishlist" json:"wishlist"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasSession reports whether sessionID is still in the user's session list.
func (u *User) HasSession(sessionID string) bool {
	for _, s := range u.Sessions {
		if s.SessionID == sessionID {
			return true
		}
	}
	return false
}

// PasswordHash returns the hash of the password credential, if the account has one.
func (u *User) PasswordHash() (string, bool) {
	for _, cred := range u.Credentials {
		if cred.Kind == CredentialPassword {
			return cred.PasswordHash, true
		}
	}
	return "", false
}

// ExternalID returns the account id the user holds at provider, if linked.
func (u *User) ExternalID(provider string) (string, bool) {
	for _, cred := range u.Credentials {
		if cred.Kind == CredentialExternal && cred.Provider == provider {
			return cred.ExternalID, true
		}
	}
	return "", false
}

// PublicUser is the shape returned by the auth endpoints.
type PublicUser struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	PhotoURL   string `json:"photoURL,omitempty"`
	IsVerified bool   `json:"isVerified"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID.Hex(),
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		PhotoURL:   u.PhotoURL,
		IsVerified: u.IsVerified,
	}
}
