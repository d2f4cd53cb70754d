package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(db *mongo.Database) UserRepository {
	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) users() *mongo.Collection {
	return r.db.Collection(userCollection)
}

func (r *userMongoRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Sessions == nil {
		user.Sessions = []models.Session{}
	}
	if user.Cart == nil {
		user.Cart = []models.CartItem{}
	}
	if user.Wishlist == nil {
		user.Wishlist = []models.WishlistItem{}
	}

	res, err := r.users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return errors.New("failed to convert inserted ID to ObjectID")
	}
	user.ID = id
	return nil
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.users().FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userMongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userMongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	count, err := r.users().CountDocuments(ctx, bson.M{"phone": phone})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// updateByID applies update and reports ErrNotFound when no user matched.
func (r *userMongoRepository) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.users().UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userMongoRepository) SetOTP(ctx context.Context, id primitive.ObjectID, code string, expires time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"otp":        code,
			"otpExpires": expires,
			"updatedAt":  time.Now(),
		},
		"$unset": bson.M{"otpAttempts": ""},
	})
}

func (r *userMongoRepository) ConsumeOTP(ctx context.Context, id primitive.ObjectID, code string) (bool, error) {
	res, err := r.users().UpdateOne(ctx, bson.M{
		"_id":        id,
		"otp":        code,
		"isVerified": false,
	}, bson.M{
		"$set":   bson.M{"isVerified": true, "updatedAt": time.Now()},
		"$unset": bson.M{"otp": "", "otpExpires": "", "otpAttempts": ""},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *userMongoRepository) RecordOTPFailure(ctx context.Context, id primitive.ObjectID, max int) (bool, error) {
	if err := r.updateByID(ctx, id, bson.M{"$inc": bson.M{"otpAttempts": 1}}); err != nil {
		return false, err
	}

	res, err := r.users().UpdateOne(ctx, bson.M{
		"_id":         id,
		"otpAttempts": bson.M{"$gte": max},
	}, bson.M{
		"$unset": bson.M{"otp": "", "otpExpires": "", "otpAttempts": ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *userMongoRepository) PushSession(ctx context.Context, id primitive.ObjectID, session models.Session, max int) error {
	return r.updateByID(ctx, id, bson.M{
		"$push": bson.M{
			"sessions": bson.M{
				"$each":  []models.Session{session},
				"$sort":  bson.M{"createdAt": 1},
				"$slice": -max,
			},
		},
		"$set": bson.M{"updatedAt": time.Now()},
	})
}

func (r *userMongoRepository) RemoveSession(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	return r.updateByID(ctx, id, bson.M{
		"$pull": bson.M{"sessions": bson.M{"sessionId": sessionID}},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

func (r *userMongoRepository) AddCredential(ctx context.Context, id primitive.ObjectID, cred models.Credential) error {
	return r.updateByID(ctx, id, bson.M{
		"$push": bson.M{"credentials": cred},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

func (r *userMongoRepository) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	now := time.Now()
	res, err := r.users().UpdateOne(ctx, bson.M{
		"_id":              id,
		"credentials.kind": models.CredentialPassword,
	}, bson.M{
		"$set": bson.M{
			"credentials.$.passwordHash": hash,
			"updatedAt":                  now,
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// Accounts created through Google have no password credential yet.
	return r.AddCredential(ctx, id, models.PasswordCredential(hash))
}

func (r *userMongoRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"resetPasswordToken":   tokenHash,
			"resetPasswordExpires": expires,
			"updatedAt":            time.Now(),
		},
	})
}

func (r *userMongoRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return r.findOne(ctx, bson.M{
		"resetPasswordToken":   tokenHash,
		"resetPasswordExpires": bson.M{"$gt": now},
	})
}

func (r *userMongoRepository) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	})
}
