package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	queryTopK   int
	queryFormat string
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question from the command line",
	Long: `Answer a question from the ingested articles.

Examples:
  # Basic query
  articlerag query "What is a goroutine?"

  # Retrieve more chunks
  articlerag query "How does GC work?" --top-k 10

  # JSON output for scripting
  articlerag query "What changed in 1.22?" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().StringVar(&queryFormat, "format", "text", "Output format: text or json")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.answerer.Answer(ctx, args[0], queryTopK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryFormat == "json" {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, source := range result.Sources {
			fmt.Printf("  - %s\n", source)
		}
	}

	return nil
}
