package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Embedder maps text to a fixed-dimensionality vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// vectorStore is the minimal key-value surface the cache needs. Redis
// implements it in production; tests use an in-memory map.
type vectorStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Cache is a read-through text-to-vector cache in front of an Embedder.
// Embeddings are deterministic per model and text, so caching never changes
// observable behavior. Cache failures degrade to computing the embedding.
type Cache struct {
	inner Embedder
	store vectorStore
	model string
}

// NewCache creates a Redis-backed embedding cache around inner.
func NewCache(client *redis.Client, model string, inner Embedder) *Cache {
	return &Cache{inner: inner, store: redisVectorStore{client: client}, model: model}
}

// newCacheWithStore is the store-injected constructor used by tests.
func newCacheWithStore(store vectorStore, model string, inner Embedder) *Cache {
	return &Cache{inner: inner, store: store, model: model}
}

// Embed returns the cached vector for the text, computing and storing it on
// a miss.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	cached, found, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("embedding cache read failed", "error", err)
	} else if found {
		var vector []float32
		if err := json.Unmarshal(cached, &vector); err == nil {
			return vector, nil
		}
		slog.Warn("embedding cache entry corrupt, recomputing", "key", key)
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(vector); err == nil {
		if err := c.store.Set(ctx, key, encoded); err != nil {
			slog.Warn("embedding cache write failed", "error", err)
		}
	}

	return vector, nil
}

func (c *Cache) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s", c.model, hex.EncodeToString(sum[:]))
}

// redisVectorStore adapts go-redis to the vectorStore surface.
type redisVectorStore struct {
	client *redis.Client
}

func (s redisVectorStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s redisVectorStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}
