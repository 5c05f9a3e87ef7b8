package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url]",
	Short: "Ingest one URL synchronously",
	Long: `Fetch, structure, and index one article without going through the
job queue. Useful for scripting and for verifying a setup.

Example:
  articlerag ingest https://example.com/blog/post`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.pipeline.Run(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingested %s\n", args[0])
	fmt.Printf("  Document ID: %s\n", result.DocID)

	return nil
}
