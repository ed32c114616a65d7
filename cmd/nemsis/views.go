package main

import (
	"fmt"
	"os"

	"github.com/dambry/nemsis-ingest/internal/config"
	"github.com/dambry/nemsis-ingest/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Create the eAirway comprehensive reporting view",
	Long: `Recreates v_eairway_comprehensive, which aggregates the 0:M eAirway
relationships (indications, complications, failure reasons, confirmation
methods) as per-PCR lists. Requires the eAirway dynamic tables to exist,
i.e. at least one file containing eAirway data has been ingested.`,
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

		created, err := store.CreateEAirwayView(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !created {
			fmt.Println("eAirway source tables not present yet; nothing to do.")
			return
		}
		fmt.Println("Created view v_eairway_comprehensive.")
	},
}
