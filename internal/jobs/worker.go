package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"articlerag/internal/ingest"
)

// Queue is the repository surface the worker needs.
type Queue interface {
	Acquire(ctx context.Context) (*Job, error)
	Complete(ctx context.Context, id string, result map[string]any) error
	Fail(ctx context.Context, id, reason string) error
}

// Ingestor runs the ingestion pipeline for one URL.
type Ingestor interface {
	Run(ctx context.Context, url string) (*ingest.Result, error)
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	Count        int
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// Worker polls the queue and executes ingestion jobs. Each job runs on
// exactly one goroutine; concurrency comes from running several pollers over
// the SKIP LOCKED acquisition.
type Worker struct {
	queue    Queue
	ingestor Ingestor
	config   WorkerConfig
	wg       sync.WaitGroup
}

// NewWorker creates a worker pool over the given queue and pipeline.
func NewWorker(queue Queue, ingestor Ingestor, config WorkerConfig) *Worker {
	if config.Count <= 0 {
		config.Count = 2
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 5 * time.Minute
	}
	return &Worker{queue: queue, ingestor: ingestor, config: config}
}

// Start launches the pool. It returns immediately; the pollers stop when ctx
// is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting ingestion workers", "count", w.config.Count, "poll_interval", w.config.PollInterval)
	for i := 0; i < w.config.Count; i++ {
		w.wg.Add(1)
		go w.poll(ctx, i)
	}
}

// Wait blocks until all pollers have stopped.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) poll(ctx context.Context, id int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopping", "worker", id)
			return
		case <-ticker.C:
			w.drain(ctx, id)
		}
	}
}

// drain processes queued jobs back to back until the queue is empty, so a
// burst of URLs does not pay the poll interval per job.
func (w *Worker) drain(ctx context.Context, id int) {
	for {
		job, err := w.queue.Acquire(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("failed to acquire job", "worker", id, "error", err)
			}
			return
		}
		if job == nil {
			return
		}
		w.process(ctx, id, job)
	}
}

func (w *Worker) process(ctx context.Context, id int, job *Job) {
	slog.Info("processing job", "worker", id, "task_id", job.ID, "url", job.URL)

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	result, err := w.ingestor.Run(jobCtx, job.URL)
	if err != nil {
		slog.Error("job failed", "worker", id, "task_id", job.ID, "error", err)
		if failErr := w.queue.Fail(context.WithoutCancel(ctx), job.ID, err.Error()); failErr != nil {
			slog.Error("failed to record job failure", "task_id", job.ID, "error", failErr)
		}
		return
	}

	payload := map[string]any{"status": result.Status, "doc_id": result.DocID}
	if err := w.queue.Complete(context.WithoutCancel(ctx), job.ID, payload); err != nil {
		slog.Error("failed to record job completion", "task_id", job.ID, "error", err)
		return
	}
	slog.Info("job completed", "worker", id, "task_id", job.ID, "doc_id", result.DocID)
}
