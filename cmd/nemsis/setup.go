package main

import (
	"fmt"
	"os"

	"github.com/dambry/nemsis-ingest/internal/config"
	"github.com/dambry/nemsis-ingest/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the target schema and audit tables",
	Long: `Creates the target schema (unless it is public), the SchemaVersions and
XMLFilesProcessed audit tables, and seeds the current ingestion logic
version. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := postgres.Open(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()

		if err := store.Bootstrap(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Schema %s ready (ingestion logic %s).\n", cfg.Schema, postgres.IngestionLogicVersion)
	},
}
