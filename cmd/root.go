package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront API server",
	Long: `Storefront serves the shop's JSON API: accounts and sessions, catalog,
cart, wishlist, checkout and the admin endpoints.

Running without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexesCmd)
}
