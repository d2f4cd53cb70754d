package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger, collection string, models ...mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		logger.Error().Err(err).Str("collection", collection).Msg("index creation failed")
		return fmt.Errorf("create %s indexes: %w", collection, err)
	}
	logger.Info().Str("collection", collection).Strs("indexes", names).Msg("indexes ensured")
	return nil
}

func EnsureUserIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger) error {
	return createIndexes(ctx, db, logger, "users",
		mongo.IndexModel{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
		mongo.IndexModel{
			Keys: bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().
				SetName("phone_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"phone": bson.M{
						"$type": "string",
						"$gt":   "",
					},
				}),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "sessions.sessionId", Value: 1}},
			Options: options.Index().SetName("sessionId_index"),
		},
		mongo.IndexModel{
			Keys: bson.D{{Key: "resetPasswordToken", Value: 1}},
			Options: options.Index().
				SetName("resetPasswordToken_index").
				SetSparse(true),
		},
	)
}

func EnsureProductIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger) error {
	return createIndexes(ctx, db, logger, "products",
		mongo.IndexModel{
			Keys:    bson.D{{Key: "categoryid", Value: 1}},
			Options: options.Index().SetName("categoryid_index"),
		},
	)
}

func EnsureCategoryIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger) error {
	return createIndexes(ctx, db, logger, "categories",
		mongo.IndexModel{
			Keys: bson.D{{Key: "name", Value: 1}},
			Options: options.Index().
				SetName("name_unique").
				SetUnique(true),
		},
	)
}

func EnsureOrderIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger) error {
	return createIndexes(ctx, db, logger, "orders",
		mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_index"),
		},
	)
}

func EnsureSubscriptionIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger) error {
	return createIndexes(ctx, db, logger, "subscriptions",
		mongo.IndexModel{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
	)
}

// EnsureIndexes creates every index the store relies on. Unique indexes back
// the duplicate checks done by the repositories.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger) error {
	steps := []func(context.Context, *mongo.Database, zerolog.Logger) error{
		EnsureUserIndexes,
		EnsureProductIndexes,
		EnsureCategoryIndexes,
		EnsureOrderIndexes,
		EnsureSubscriptionIndexes,
	}
	for _, ensure := range steps {
		if err := ensure(ctx, db, logger); err != nil {
			return err
		}
	}
	return nil
}
