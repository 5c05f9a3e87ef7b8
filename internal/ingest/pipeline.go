// Package ingest runs the full ingestion pipeline for one URL: fetch and
// extract, structure, persist, chunk, embed, index.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"articlerag/internal/chunker"
	"articlerag/internal/extractor"
	"articlerag/internal/structurer"
	"articlerag/pkg/models"
)

// Extractor fetches a URL and produces article text.
type Extractor interface {
	Extract(ctx context.Context, url string) (*extractor.Extraction, error)
}

// DocumentStore persists structured documents.
type DocumentStore interface {
	Insert(ctx context.Context, url string, data models.StructuredData) (string, error)
}

// VectorIndex stores chunk embeddings.
type VectorIndex interface {
	Insert(ctx context.Context, embedding []float32, ref models.ChunkRef, id string) error
}

// Embedder turns chunk text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Archiver keeps raw HTML snapshots. Archival is best-effort and optional.
type Archiver interface {
	PutSnapshot(ctx context.Context, url, html string) error
}

// Result is the terminal payload of a successful ingestion.
type Result struct {
	Status string `json:"status"`
	DocID  string `json:"doc_id"`
}

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	extractor  Extractor
	structurer *structurer.Structurer
	store      DocumentStore
	index      VectorIndex
	embedder   Embedder
	archive    Archiver // may be nil
}

// New creates an ingestion pipeline. archive may be nil to disable snapshots.
func New(ex Extractor, st *structurer.Structurer, store DocumentStore, index VectorIndex, embedder Embedder, archive Archiver) *Pipeline {
	return &Pipeline{
		extractor:  ex,
		structurer: st,
		store:      store,
		index:      index,
		embedder:   embedder,
		archive:    archive,
	}
}

// Run ingests one URL end to end. Fetch and extraction errors abort the run;
// structuring errors degrade to the flat document shape. The document is
// stored before any chunk is embedded, so a mid-run failure can leave a
// document without vectors but never vectors without a document.
func (p *Pipeline) Run(ctx context.Context, url string) (*Result, error) {
	ext, err := p.extractor.Extract(ctx, url)
	if err != nil {
		return nil, err
	}

	if p.archive != nil && ext.RawHTML != "" {
		if err := p.archive.PutSnapshot(ctx, url, ext.RawHTML); err != nil {
			slog.Warn("snapshot archival failed", "url", url, "error", err)
		}
	}

	data := p.structurer.Structure(ctx, url, ext.Text, ext.Title).OrFallback(ext.Text)

	docID, err := p.store.Insert(ctx, url, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	indexed := 0
	for _, chunk := range chunker.Chunks(data) {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}

		embedding, err := p.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %q: %w", chunk.Key, err)
		}

		ref := models.ChunkRef{DocumentID: docID, ChunkKey: chunk.Key, SourceURL: url}
		if err := p.index.Insert(ctx, embedding, ref, uuid.NewString()); err != nil {
			return nil, fmt.Errorf("failed to index chunk %q: %w", chunk.Key, err)
		}
		indexed++
	}

	slog.Info("ingestion complete", "url", url, "doc_id", docID, "chunks", indexed)
	return &Result{Status: "completed", DocID: docID}, nil
}
