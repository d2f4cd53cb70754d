package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logging"
)

// bootstrap loads configuration, sets up logging and connects to MongoDB.
// The caller owns the returned client.
func bootstrap(ctx context.Context) (config.Config, zerolog.Logger, *mongo.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogPretty)

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, err
	}
	logger.Info().Str("db", cfg.DBName).Msg("MongoDB connected")

	return cfg, logger, client, nil
}
