package jobs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"articlerag/internal/docstore"
)

func skipIfNoPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping: TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := docstore.NewPool(ctx, dsn)
	if err != nil {
		t.Skipf("Skipping: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func freshRepository(t *testing.T, pool *pgxpool.Pool) *Repository {
	t.Helper()
	ctx := context.Background()

	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS ingest_jobs`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	repo := NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return repo
}

func TestRepository_Lifecycle(t *testing.T) {
	pool := skipIfNoPostgres(t)
	repo := freshRepository(t, pool)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	job, err := repo.Get(ctx, id)
	if err != nil || job == nil {
		t.Fatalf("Get() = %v, %v", job, err)
	}
	if job.Status != StatusQueued || job.URL != "https://example.com/a" {
		t.Errorf("job = %+v, want queued", job)
	}

	acquired, err := repo.Acquire(ctx)
	if err != nil || acquired == nil {
		t.Fatalf("Acquire() = %v, %v", acquired, err)
	}
	if acquired.ID != id || acquired.Status != StatusRunning {
		t.Errorf("acquired = %+v, want running %s", acquired, id)
	}

	// The queue is now empty; a second acquire finds nothing.
	if next, err := repo.Acquire(ctx); err != nil || next != nil {
		t.Errorf("Acquire() on empty queue = %v, %v, want nil, nil", next, err)
	}

	if err := repo.Complete(ctx, id, map[string]any{"status": "completed", "doc_id": "d1"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	job, err = repo.Get(ctx, id)
	if err != nil || job == nil {
		t.Fatalf("Get() after complete = %v, %v", job, err)
	}
	if job.Status != StatusCompleted || job.Result["doc_id"] != "d1" {
		t.Errorf("job = %+v, want completed with doc_id", job)
	}

	// Terminal states are final: completing again is rejected.
	if err := repo.Complete(ctx, id, nil); err == nil {
		t.Error("Complete() on a completed job must fail")
	}
}

func TestRepository_FailRecordsReason(t *testing.T) {
	pool := skipIfNoPostgres(t)
	repo := freshRepository(t, pool)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, "https://down.example")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := repo.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := repo.Fail(ctx, id, "fetch failed: status 404"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}

	job, err := repo.Get(ctx, id)
	if err != nil || job == nil {
		t.Fatalf("Get() = %v, %v", job, err)
	}
	if job.Status != StatusFailed || job.Result["error"] != "fetch failed: status 404" {
		t.Errorf("job = %+v, want failed with reason", job)
	}
}

func TestRepository_AcquireOrdersByAge(t *testing.T) {
	pool := skipIfNoPostgres(t)
	repo := freshRepository(t, pool)
	ctx := context.Background()

	first, err := repo.Enqueue(ctx, "https://example.com/1")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := repo.Enqueue(ctx, "https://example.com/2"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	job, err := repo.Acquire(ctx)
	if err != nil || job == nil {
		t.Fatalf("Acquire() = %v, %v", job, err)
	}
	if job.ID != first {
		t.Errorf("acquired %s, want oldest job %s", job.ID, first)
	}
}

func TestRepository_GetMalformedID(t *testing.T) {
	pool := skipIfNoPostgres(t)
	repo := freshRepository(t, pool)

	job, err := repo.Get(context.Background(), "not-a-uuid")
	if err != nil || job != nil {
		t.Errorf("Get() = %v, %v, want nil, nil", job, err)
	}
}
