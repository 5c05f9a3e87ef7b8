package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists ingestion jobs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Repository on the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the job table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS ingest_jobs (
			id         UUID PRIMARY KEY,
			url        TEXT NOT NULL,
			status     TEXT NOT NULL,
			result     JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.pool.Exec(ctx, table); err != nil {
		return fmt.Errorf("failed to ensure job schema: %w", err)
	}

	index := `
		CREATE INDEX IF NOT EXISTS idx_ingest_jobs_queued
		ON ingest_jobs (created_at) WHERE status = 'queued'
	`
	if _, err := r.pool.Exec(ctx, index); err != nil {
		return fmt.Errorf("failed to ensure job index: %w", err)
	}
	return nil
}

// Enqueue creates a queued job for the URL and returns its id.
func (r *Repository) Enqueue(ctx context.Context, url string) (string, error) {
	id := uuid.New()
	query := `
		INSERT INTO ingest_jobs (id, url, status)
		VALUES ($1, $2, $3)
	`
	if _, err := r.pool.Exec(ctx, query, id, url, StatusQueued); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return id.String(), nil
}

// Acquire claims the oldest queued job and flips it to running. The row lock
// with SKIP LOCKED guarantees each job is handed to exactly one worker even
// with concurrent pollers. Returns nil when the queue is empty.
func (r *Repository) Acquire(ctx context.Context) (*Job, error) {
	query := `
		UPDATE ingest_jobs
		SET status = $1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM ingest_jobs
			WHERE status = $2
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, url, status, result, created_at, updated_at
	`
	row := r.pool.QueryRow(ctx, query, StatusRunning, StatusQueued)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire job: %w", err)
	}
	return job, nil
}

// Complete marks the job completed with the given result payload.
func (r *Repository) Complete(ctx context.Context, id string, result map[string]any) error {
	return r.finish(ctx, id, StatusCompleted, result)
}

// Fail marks the job failed, recording the reason in the result payload.
func (r *Repository) Fail(ctx context.Context, id, reason string) error {
	return r.finish(ctx, id, StatusFailed, map[string]any{"error": reason})
}

func (r *Repository) finish(ctx context.Context, id string, status Status, result map[string]any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal job result: %w", err)
	}

	query := `
		UPDATE ingest_jobs
		SET status = $1, result = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	tag, err := r.pool.Exec(ctx, query, status, payload, id, StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not running", id)
	}
	return nil
}

// Get returns the job with the given id, or nil when it does not exist. A
// malformed id is treated as not-found.
func (r *Repository) Get(ctx context.Context, id string) (*Job, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	query := `
		SELECT id, url, status, result, created_at, updated_at
		FROM ingest_jobs
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, uid)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var id uuid.UUID
	var job Job
	var payload []byte

	if err := row.Scan(&id, &job.URL, &job.Status, &payload, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
		}
	}

	job.ID = id.String()
	return &job, nil
}
