package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"articlerag/internal/answer"
	"articlerag/internal/archive"
	"articlerag/internal/config"
	"articlerag/internal/docstore"
	"articlerag/internal/embeddings"
	"articlerag/internal/extractor"
	"articlerag/internal/ingest"
	"articlerag/internal/jobs"
	"articlerag/internal/llm"
	"articlerag/internal/structurer"
	"articlerag/internal/vectorindex"
)

// app holds the wired components shared by the commands.
type app struct {
	pool      *pgxpool.Pool
	redis     *redis.Client
	documents *docstore.Store
	queue     *jobs.Repository
	index     *vectorindex.Index
	pipeline  *ingest.Pipeline
	answerer  *answer.Pipeline
}

// buildApp connects to the backing stores, ensures their schemas, and wires
// both pipelines.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	pool, err := docstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	documents := docstore.New(pool)
	if err := documents.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	queue := jobs.NewRepository(pool)
	if err := queue.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	index, err := vectorindex.New(vectorindex.Config{
		Addresses:  cfg.Elasticsearch.Addresses,
		Index:      cfg.Elasticsearch.Index,
		Username:   cfg.Elasticsearch.Username,
		Password:   cfg.Elasticsearch.Password,
		Dimensions: cfg.Elasticsearch.Dimensions,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	if err := index.EnsureIndex(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	chat, err := llm.New(llm.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	embedClient, err := embeddings.New(embeddings.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Models.Embedding,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}

	var embedder embeddings.Embedder = embedClient
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		embedder = embeddings.NewCache(redisClient, cfg.Models.Embedding, embedClient)
		slog.Info("embedding cache enabled", "addr", cfg.Redis.Addr)
	}

	var archiver ingest.Archiver
	if cfg.Archive.Enabled {
		archiveClient, err := archive.New(archive.Config{
			Endpoint:        cfg.Archive.Endpoint,
			Bucket:          cfg.Archive.Bucket,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			UseSSL:          cfg.Archive.UseSSL,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create archive client: %w", err)
		}
		if err := archiveClient.EnsureBucket(ctx); err != nil {
			slog.Warn("archive bucket unavailable, snapshots disabled", "error", err)
		} else {
			archiver = archiveClient
			slog.Info("snapshot archive enabled", "bucket", cfg.Archive.Bucket)
		}
	}

	ex := extractor.New(extractor.Config{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	})
	st := structurer.New(chat, cfg.Models.Structuring)

	return &app{
		pool:      pool,
		redis:     redisClient,
		documents: documents,
		queue:     queue,
		index:     index,
		pipeline:  ingest.New(ex, st, documents, index, embedder, archiver),
		answerer:  answer.New(embedder, index, documents, chat, cfg.Models.Answer, cfg.Retrieval.TopK),
	}, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.pool.Close()
}
