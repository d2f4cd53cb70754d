package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"storefront/internal/database"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create or update the MongoDB indexes and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, client, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		return database.EnsureIndexes(ctx, client.Database(cfg.DBName), logger)
	},
}
