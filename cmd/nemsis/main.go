package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dambry/nemsis-ingest/internal/debug"
	"github.com/spf13/cobra"
)

var verbose bool

// rootCtx is cancelled on SIGINT/SIGTERM so an in-flight file rolls back
// instead of half-committing.
var (
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "nemsis",
	Short: "NEMSIS XML dynamic data ingestion tool (PostgreSQL)",
	Long: `Ingests NEMSIS XML documents into PostgreSQL, growing a dynamic
relational schema that mirrors the structure of the input. Each file is
staged in a single transaction; re-ingesting a file replaces all data for
the Patient Care Reports it contains.

Connection parameters come from the environment: PG_HOST, PG_PORT,
PG_DATABASE, PG_USER, PG_PASSWORD, PG_SCHEMA.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		debug.SetVerbose(verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose diagnostic output")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(viewsCmd)

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
