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

const (
	orderCollection        = "orders"
	subscriptionCollection = "subscriptions"
	contactCollection      = "contacts"
)

type orderMongoRepository struct {
	db *mongo.Database
}

func NewOrderMongoRepository(db *mongo.Database) OrderRepository {
	return &orderMongoRepository{db: db}
}

// PriceCart turns cart entries into order lines using catalog prices rather
// than the prices denormalized into the cart.
func PriceCart(cart []models.CartItem, catalog map[string]models.Product) ([]models.OrderItem, float64, error) {
	if len(cart) == 0 {
		return nil, 0, ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(cart))
	total := 0.0
	for _, entry := range cart {
		product, ok := catalog[entry.ProductID]
		if !ok {
			return nil, 0, ProductMissingError{ProductID: entry.ProductID}
		}
		quantity := entry.Quantity
		if quantity < 1 {
			quantity = 1
		}
		unitPrice := models.EffectivePrice(product.OriginalPrice, product.DiscountedPrice)
		items = append(items, models.OrderItem{
			ProductID: entry.ProductID,
			Title:     product.Name,
			Price:     unitPrice,
			Quantity:  quantity,
		})
		total += unitPrice * float64(quantity)
	}
	return items, total, nil
}

func (r *orderMongoRepository) PlaceFromCart(ctx context.Context, userID primitive.ObjectID, billing models.Billing, paymentMethod string) (*models.Order, error) {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	var order *models.Order
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		var user struct {
			Cart []models.CartItem `bson:"cart"`
		}
		err := r.db.Collection(userCollection).FindOne(
			sessCtx,
			bson.M{"_id": userID},
			options.FindOne().SetProjection(bson.M{"cart": 1}),
		).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if len(user.Cart) == 0 {
			return nil, ErrEmptyCart
		}

		ids := make([]primitive.ObjectID, 0, len(user.Cart))
		for _, entry := range user.Cart {
			id, err := primitive.ObjectIDFromHex(entry.ProductID)
			if err != nil {
				return nil, ProductMissingError{ProductID: entry.ProductID}
			}
			ids = append(ids, id)
		}

		cursor, err := r.db.Collection(productCollection).Find(sessCtx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, err
		}
		products, err := decodeProducts(sessCtx, cursor)
		cursor.Close(sessCtx)
		if err != nil {
			return nil, err
		}

		catalog := make(map[string]models.Product, len(products))
		for _, p := range products {
			catalog[p.ID.Hex()] = p
		}

		items, total, err := PriceCart(user.Cart, catalog)
		if err != nil {
			return nil, err
		}

		placed := &models.Order{
			UserID:        userID,
			Billing:       billing,
			Products:      items,
			TotalPrice:    total,
			PaymentMethod: paymentMethod,
			Status:        models.OrderStatusPending,
			CreatedAt:     time.Now(),
		}
		res, err := r.db.Collection(orderCollection).InsertOne(sessCtx, placed)
		if err != nil {
			return nil, err
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			placed.ID = id
		}

		if _, err := r.db.Collection(userCollection).UpdateByID(sessCtx, userID, bson.M{
			"$set": bson.M{"cart": []models.CartItem{}, "updatedAt": time.Now()},
		}); err != nil {
			return nil, err
		}

		order = placed
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderMongoRepository) list(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.db.Collection(orderCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderMongoRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.list(ctx, bson.M{"userId": userID})
}

func (r *orderMongoRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, bson.M{})
}

func (r *orderMongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.Collection(orderCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type subscriptionMongoRepository struct {
	db *mongo.Database
}

func NewSubscriptionMongoRepository(db *mongo.Database) SubscriptionRepository {
	return &subscriptionMongoRepository{db: db}
}

func (r *subscriptionMongoRepository) Subscribe(ctx context.Context, email string) error {
	_, err := r.db.Collection(subscriptionCollection).UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": bson.M{"email": email, "createdAt": time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert won; the address is subscribed either way.
		return nil
	}
	return err
}

type contactMongoRepository struct {
	db *mongo.Database
}

func NewContactMongoRepository(db *mongo.Database) ContactRepository {
	return &contactMongoRepository{db: db}
}

func (r *contactMongoRepository) Create(ctx context.Context, msg *models.ContactMessage) error {
	msg.CreatedAt = time.Now()
	res, err := r.db.Collection(contactCollection).InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = id
	}
	return nil
}
