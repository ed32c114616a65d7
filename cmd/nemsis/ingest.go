package main

import (
	"fmt"
	"os"

	"github.com/dambry/nemsis-ingest/internal/config"
	"github.com/dambry/nemsis-ingest/internal/ingest"
	"github.com/dambry/nemsis-ingest/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var (
	ingestArchiveDir string
	ingestErrorDir   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <xml_file>",
	Short: "Ingest one NEMSIS XML file into the dynamic schema",
	Long: `Stages one NEMSIS XML file in a single database transaction.

Data for every Patient Care Report referenced by the file is deleted
before insertion, so re-ingesting a file replaces its PCRs completely.
Successfully staged files move to the archive directory; failed files are
quarantined in the error directory with an Error_* audit row.

Run 'nemsis setup' once per schema before the first ingest.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIngest(cmd, args[0])
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestArchiveDir, "archive-dir", "",
		fmt.Sprintf("Archive directory for staged files (default %q)", config.DefaultArchiveDir))
	ingestCmd.Flags().StringVar(&ingestErrorDir, "error-dir", "",
		fmt.Sprintf("Quarantine directory for failed files (default %q)", config.DefaultErrorDir))
}

func runIngest(cmd *cobra.Command, xmlPath string) {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if ingestArchiveDir != "" {
		cfg.ArchiveDir = ingestArchiveDir
	}
	if ingestErrorDir != "" {
		cfg.ErrorDir = ingestErrorDir
	}

	store, err := postgres.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	versionID, found, err := store.IngestionSchemaVersionID(ctx, postgres.IngestionLogicVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "Error: ingestion logic version %s not found in SchemaVersions\n", postgres.IngestionLogicVersion)
		fmt.Fprintf(os.Stderr, "Hint: run 'nemsis setup' against this schema first\n")
		os.Exit(1)
	}

	pipeline := ingest.New(store, versionID, cfg.ArchiveDir, cfg.ErrorDir)
	if err := pipeline.ProcessFile(ctx, xmlPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: ingestion for %s failed: %v\n", xmlPath, err)
		os.Exit(1)
	}
	fmt.Printf("Ingestion for %s completed successfully.\n", xmlPath)
}
