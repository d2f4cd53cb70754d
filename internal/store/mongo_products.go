package store

import (
	"context"
	"errors"
	"math"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

const (
	productCollection  = "products"
	categoryCollection = "categories"
)

// SortableProductFields lists the fields catalog listings may sort on.
var SortableProductFields = map[string]bool{
	"name":               true,
	"originalPrice":      true,
	"discountedPrice":    true,
	"reviews":            true,
	"discountPercentage": true,
}

type productMongoRepository struct {
	db *mongo.Database
}

func NewProductMongoRepository(db *mongo.Database) ProductRepository {
	return &productMongoRepository{db: db}
}

func (r *productMongoRepository) products() *mongo.Collection {
	return r.db.Collection(productCollection)
}

func buildProductQuery(f ProductFilter) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["categoryid"] = f.Category
	}
	if f.Search != "" {
		pattern := regexp.QuoteMeta(f.Search)
		filter["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	if f.MinPrice > 0 || f.MaxPrice > 0 {
		price := bson.M{}
		if f.MinPrice > 0 {
			price["$gte"] = f.MinPrice
		}
		if f.MaxPrice > 0 {
			price["$lte"] = f.MaxPrice
		}
		filter["originalPrice"] = price
	}
	return filter
}

func (r *productMongoRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := buildProductQuery(f)

	total, err := r.products().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	sortBy := f.SortBy
	if !SortableProductFields[sortBy] {
		sortBy = "name"
	}
	direction := 1
	if f.SortDesc {
		direction = -1
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: sortBy, Value: direction}, {Key: "_id", Value: 1}})
	if f.Page > 0 && f.Limit > 0 {
		if f.Page-1 > math.MaxInt64/f.Limit {
			return []models.Product{}, total, nil
		}
		findOptions.
			SetSkip((f.Page - 1) * f.Limit).
			SetLimit(f.Limit)
	}

	cursor, err := r.products().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productMongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var raw bson.M
	if err := r.products().FindOne(ctx, bson.M{"_id": id}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	product, err := normalizeProductDocument(raw)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productMongoRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	cursor, err := r.products().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeProducts(ctx, cursor)
}

func (r *productMongoRepository) Create(ctx context.Context, product *models.Product) error {
	res, err := r.products().InsertOne(ctx, product)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}
	product.Normalize()
	return nil
}

func (r *productMongoRepository) Update(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var raw bson.M
	err := r.products().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)}, opts).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	product, err := normalizeProductDocument(raw)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productMongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.products().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type categoryMongoRepository struct {
	db *mongo.Database
}

func NewCategoryMongoRepository(db *mongo.Database) CategoryRepository {
	return &categoryMongoRepository{db: db}
}

func (r *categoryMongoRepository) List(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().
		SetProjection(bson.M{"name": 1, "description": 1}).
		SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.db.Collection(categoryCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	categories := make([]models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryMongoRepository) Create(ctx context.Context, category *models.Category) error {
	res, err := r.db.Collection(categoryCollection).InsertOne(ctx, category)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		category.ID = id
	}
	return nil
}

func (r *categoryMongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.Collection(categoryCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
