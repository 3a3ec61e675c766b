package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amaumene/watchtrack/internal/app"
	"github.com/amaumene/watchtrack/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Opening a store migrates it
	tools, cleanup, err := app.InitializeTools(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	tools.Logger.WithField("backend", cfg.StoreBackend).Info("Schema is up to date")
	return nil
}
