package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

// cartMongoRepository and wishlistMongoRepository work on the lists embedded
// in the users collection.
type cartMongoRepository struct {
	db *mongo.Database
}

func NewCartMongoRepository(db *mongo.Database) CartRepository {
	return &cartMongoRepository{db: db}
}

func (r *cartMongoRepository) users() *mongo.Collection {
	return r.db.Collection(userCollection)
}

func (r *cartMongoRepository) Get(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, error) {
	var doc struct {
		Cart []models.CartItem `bson:"cart"`
	}
	opts := options.FindOne().SetProjection(bson.M{"cart": 1})
	if err := r.users().FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.Cart == nil {
		doc.Cart = []models.CartItem{}
	}
	return doc.Cart, nil
}

func (r *cartMongoRepository) Add(ctx context.Context, userID primitive.ObjectID, item models.ProductSnapshot) ([]models.CartItem, error) {
	// Two attempts cover the case where a concurrent add pushes the entry
	// between our increment and our push.
	for attempt := 0; attempt < 2; attempt++ {
		res, err := r.users().UpdateOne(ctx, bson.M{
			"_id":            userID,
			"cart.productId": item.ProductID,
		}, bson.M{
			"$inc": bson.M{"cart.$.quantity": 1},
			"$set": bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return r.Get(ctx, userID)
		}

		res, err = r.users().UpdateOne(ctx, bson.M{
			"_id":            userID,
			"cart.productId": bson.M{"$ne": item.ProductID},
		}, bson.M{
			"$push": bson.M{"cart": models.CartItem{ProductSnapshot: item, Quantity: 1}},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return r.Get(ctx, userID)
		}

		exists, err := r.userExists(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
	}
	return r.Get(ctx, userID)
}

func (r *cartMongoRepository) Remove(ctx context.Context, userID primitive.ObjectID, productID string) ([]models.CartItem, error) {
	res, err := r.users().UpdateByID(ctx, userID, bson.M{
		"$pull": bson.M{"cart": bson.M{"productId": productID}},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, userID)
}

func (r *cartMongoRepository) SetQuantity(ctx context.Context, userID primitive.ObjectID, productID string, quantity int) ([]models.CartItem, error) {
	res, err := r.users().UpdateOne(ctx, bson.M{
		"_id":            userID,
		"cart.productId": productID,
	}, bson.M{
		"$set": bson.M{
			"cart.$.quantity": quantity,
			"updatedAt":       time.Now(),
		},
	})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		exists, err := r.userExists(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrItemNotFound
	}
	return r.Get(ctx, userID)
}

func (r *cartMongoRepository) Clear(ctx context.Context, userID primitive.ObjectID) error {
	res, err := r.users().UpdateByID(ctx, userID, bson.M{
		"$set": bson.M{"cart": []models.CartItem{}, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *cartMongoRepository) userExists(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	count, err := r.users().CountDocuments(ctx, bson.M{"_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type wishlistMongoRepository struct {
	db *mongo.Database
}

func NewWishlistMongoRepository(db *mongo.Database) WishlistRepository {
	return &wishlistMongoRepository{db: db}
}

func (r *wishlistMongoRepository) users() *mongo.Collection {
	return r.db.Collection(userCollection)
}

func (r *wishlistMongoRepository) Get(ctx context.Context, userID primitive.ObjectID) ([]models.WishlistItem, error) {
	var doc struct {
		Wishlist []models.WishlistItem `bson:"wishlist"`
	}
	opts := options.FindOne().SetProjection(bson.M{"wishlist": 1})
	if err := r.users().FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.Wishlist == nil {
		doc.Wishlist = []models.WishlistItem{}
	}
	return doc.Wishlist, nil
}

func (r *wishlistMongoRepository) Add(ctx context.Context, userID primitive.ObjectID, item models.ProductSnapshot) error {
	res, err := r.users().UpdateOne(ctx, bson.M{
		"_id":                userID,
		"wishlist.productId": bson.M{"$ne": item.ProductID},
	}, bson.M{
		"$push": bson.M{"wishlist": models.WishlistItem{ProductSnapshot: item}},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	count, err := r.users().CountDocuments(ctx, bson.M{"_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrAlreadyPresent
}

func (r *wishlistMongoRepository) Remove(ctx context.Context, userID primitive.ObjectID, productID string) error {
	res, err := r.users().UpdateByID(ctx, userID, bson.M{
		"$pull": bson.M{"wishlist": bson.M{"productId": productID}},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *wishlistMongoRepository) Contains(ctx context.Context, userID primitive.ObjectID, productID string) (bool, error) {
	items, err := r.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}
