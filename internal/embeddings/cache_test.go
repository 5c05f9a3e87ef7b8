package embeddings

import (
	"context"
	"errors"
	"testing"
)

type mapVectorStore struct {
	entries map[string][]byte
	getErr  error
}

func newMapVectorStore() *mapVectorStore {
	return &mapVectorStore{entries: make(map[string][]byte)}
}

func (s *mapVectorStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	value, ok := s.entries[key]
	return value, ok, nil
}

func (s *mapVectorStore) Set(ctx context.Context, key string, value []byte) error {
	s.entries[key] = value
	return nil
}

type countingEmbedder struct {
	calls  int
	vector []float32
	err    error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return e.vector, e.err
}

func TestCache_ComputesOnceThenServesFromStore(t *testing.T) {
	inner := &countingEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	cache := newCacheWithStore(newMapVectorStore(), "test-model", inner)

	ctx := context.Background()
	first, err := cache.Embed(ctx, "some text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	second, err := cache.Embed(ctx, "some text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner embedder called %d times, want 1", inner.calls)
	}
	if len(first) != 3 || len(second) != 3 || second[1] != 0.2 {
		t.Errorf("cached vector mismatch: %v vs %v", first, second)
	}
}

func TestCache_DistinctTextsDistinctKeys(t *testing.T) {
	inner := &countingEmbedder{vector: []float32{1}}
	cache := newCacheWithStore(newMapVectorStore(), "test-model", inner)

	ctx := context.Background()
	cache.Embed(ctx, "alpha")
	cache.Embed(ctx, "beta")

	if inner.calls != 2 {
		t.Errorf("inner embedder called %d times, want 2", inner.calls)
	}
}

func TestCache_StoreFailureDegradesToCompute(t *testing.T) {
	store := newMapVectorStore()
	store.getErr = errors.New("redis down")
	inner := &countingEmbedder{vector: []float32{1, 2}}
	cache := newCacheWithStore(store, "test-model", inner)

	vector, err := cache.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed() error = %v, cache failure must not surface", err)
	}
	if len(vector) != 2 {
		t.Errorf("vector = %v", vector)
	}
	if inner.calls != 1 {
		t.Errorf("inner embedder called %d times, want 1", inner.calls)
	}
}

func TestCache_PropagatesEmbedderError(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("provider unavailable")}
	cache := newCacheWithStore(newMapVectorStore(), "test-model", inner)

	if _, err := cache.Embed(context.Background(), "text"); err == nil {
		t.Fatal("Embed() expected error from inner embedder")
	}
}
