package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"articlerag/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server over stdio.

The server provides three tools:
  - ask:          Answer a question from the ingested articles
  - ingest_url:   Queue a web article for ingestion
  - get_document: Get an ingested document by ID

Example:
  articlerag mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// The stdio transport owns the process lifetime; it returns when the
	// client closes the stream.
	ctx := context.Background()

	cfg := GetConfig()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	server := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, app.queue, app.answerer, app.documents)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
