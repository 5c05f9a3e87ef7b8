// Package docstore persists ingested documents in PostgreSQL. It is the
// record of truth: the vector index only holds references back into it.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"articlerag/pkg/models"
)

// NewPool creates a PostgreSQL connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return pool, nil
}

// Store is the PostgreSQL document store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the documents table if it does not exist. The seq
// column preserves insertion order for listing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS documents (
			seq        BIGINT GENERATED ALWAYS AS IDENTITY,
			id         UUID PRIMARY KEY,
			url        TEXT NOT NULL,
			data       JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure documents schema: %w", err)
	}
	return nil
}

// Insert stores a new document and returns its generated identifier.
// Documents are insert-only; the same URL may appear more than once.
func (s *Store) Insert(ctx context.Context, url string, data models.StructuredData) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document data: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO documents (id, url, data, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := s.pool.Exec(ctx, query, id, url, payload); err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	return id.String(), nil
}

// FindByID returns the document with the given id, or nil when it does not
// exist. A malformed id is treated as not-found, never as an error.
func (s *Store) FindByID(ctx context.Context, id string) (*models.Document, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	query := `
		SELECT id, url, data, created_at
		FROM documents
		WHERE id = $1
	`
	row := s.pool.QueryRow(ctx, query, uid)

	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return doc, nil
}

// List returns documents in insertion-descending order, skipping skip rows
// and returning at most limit.
func (s *Store) List(ctx context.Context, skip, limit int) ([]models.Document, error) {
	query := `
		SELECT id, url, data, created_at
		FROM documents
		ORDER BY seq DESC
		OFFSET $1 LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	return docs, nil
}

// Count returns the unconditional number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var id uuid.UUID
	var doc models.Document
	var payload []byte

	if err := row.Scan(&id, &doc.URL, &payload, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &doc.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document data: %w", err)
	}

	doc.ID = id.String()
	return &doc, nil
}
