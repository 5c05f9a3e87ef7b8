// Package vectorindex stores one vector per chunk in Elasticsearch and
// answers nearest-neighbor queries over them.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"articlerag/pkg/models"
)

// Config holds Elasticsearch connection configuration.
type Config struct {
	Addresses  []string
	Index      string
	Username   string
	Password   string
	Dimensions int
}

// Index wraps the Elasticsearch client with vector operations. Each record
// links back to a (document_id, chunk_key, source_url) triple; the text
// itself lives in the document store.
type Index struct {
	es    *elasticsearch.Client
	index string
	dims  int
}

// New creates a new vector index client.
func New(config Config) (*Index, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	dims := config.Dimensions
	if dims == 0 {
		dims = 1536
	}

	return &Index{
		es:    es,
		index: config.Index,
		dims:  dims,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (i *Index) Ping(ctx context.Context) bool {
	res, err := i.es.Ping(i.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// EnsureIndex creates the index with the vector mapping if it is missing.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"embedding": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"document_id": { "type": "keyword" },
				"chunk_key":   { "type": "keyword" },
				"source_url":  { "type": "keyword" }
			}
		}
	}`, i.dims)

	res, err = i.es.Indices.Create(
		i.index,
		i.es.Indices.Create.WithContext(ctx),
		i.es.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (i *Index) DeleteIndex(ctx context.Context) error {
	res, err := i.es.Indices.Delete([]string{i.index}, i.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// vectorRecord is the stored shape of one chunk vector.
type vectorRecord struct {
	Embedding  []float32 `json:"embedding"`
	DocumentID string    `json:"document_id"`
	ChunkKey   string    `json:"chunk_key"`
	SourceURL  string    `json:"source_url"`
}

// Insert stores one chunk vector under the given record id.
func (i *Index) Insert(ctx context.Context, embedding []float32, ref models.ChunkRef, id string) error {
	record := vectorRecord{
		Embedding:  embedding,
		DocumentID: ref.DocumentID,
		ChunkKey:   ref.ChunkKey,
		SourceURL:  ref.SourceURL,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal vector record: %w", err)
	}

	res, err := i.es.Index(
		i.index,
		bytes.NewReader(data),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(id),
	)
	if err != nil {
		return fmt.Errorf("failed to index vector record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing vector record (status %d): %s", res.StatusCode, res.String())
	}

	return nil
}

// Refresh forces an index refresh (useful for testing).
func (i *Index) Refresh(ctx context.Context) error {
	res, err := i.es.Indices.Refresh(
		i.es.Indices.Refresh.WithContext(ctx),
		i.es.Indices.Refresh.WithIndex(i.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// searchResponse represents the ES kNN search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source vectorRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query returns the chunk references of the topK nearest vectors by cosine
// similarity, nearest first.
func (i *Index) Query(ctx context.Context, embedding []float32, topK int) ([]models.ChunkRef, error) {
	searchQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   embedding,
			"k":              topK,
			"num_candidates": topK * 4,
		},
		"size":    topK,
		"_source": []string{"document_id", "chunk_key", "source_url"},
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("vector query error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	refs := make([]models.ChunkRef, len(sr.Hits.Hits))
	for n, hit := range sr.Hits.Hits {
		refs[n] = models.ChunkRef{
			DocumentID: hit.Source.DocumentID,
			ChunkKey:   hit.Source.ChunkKey,
			SourceURL:  hit.Source.SourceURL,
		}
	}

	return refs, nil
}

// Count returns the number of stored vector records.
func (i *Index) Count(ctx context.Context) (int, error) {
	res, err := i.es.Count(
		i.es.Count.WithContext(ctx),
		i.es.Count.WithIndex(i.index),
	)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("count error: %s", res.String())
	}

	var cr struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}

	return cr.Count, nil
}
