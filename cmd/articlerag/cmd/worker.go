package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"articlerag/internal/jobs"
)

var workerCount int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the ingestion worker pool",
	Long: `Start a standalone ingestion worker pool.

Workers poll the job queue and process queued URLs. Several worker
processes may run against the same database; each job is claimed by
exactly one of them.

Example:
  articlerag worker --count 4`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().IntVar(&workerCount, "count", 0, "number of workers (default from config)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if workerCount > 0 {
		cfg.Worker.Count = workerCount
	}

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	worker := jobs.NewWorker(app.queue, app.pipeline, jobs.WorkerConfig{
		Count:        cfg.Worker.Count,
		PollInterval: cfg.Worker.PollInterval,
	})
	worker.Start(ctx)
	worker.Wait()

	return nil
}
