package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"articlerag/internal/jobs"
	"articlerag/internal/server"
)

var serveWorkers bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API server.

Endpoints:
  POST /add-url    Queue a URL for ingestion
  GET  /tasks/:id  Poll an ingestion task
  POST /query      Ask a question
  GET  /documents  List ingested documents
  GET  /stats      Document and vector counts

By default the server also runs the ingestion worker pool in-process;
use --workers=false to serve the API alone and run workers separately.

Example:
  articlerag serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveWorkers, "workers", true, "run the ingestion worker pool in-process")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if serveWorkers {
		worker := jobs.NewWorker(app.queue, app.pipeline, jobs.WorkerConfig{
			Count:        cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		})
		worker.Start(ctx)
		defer worker.Wait()
	}

	srv := server.New(app.queue, app.answerer, app.documents, app.index)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
