// Package answer resolves retrieval hits into context passages and asks a
// generative model to answer the question over them.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"articlerag/pkg/models"
)

const systemPrompt = "Answer based on context."

// Embedder turns the question into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex answers nearest-neighbor queries.
type VectorIndex interface {
	Query(ctx context.Context, embedding []float32, topK int) ([]models.ChunkRef, error)
}

// DocumentStore resolves document ids to stored documents. A nil document
// with a nil error means not-found.
type DocumentStore interface {
	FindByID(ctx context.Context, id string) (*models.Document, error)
}

// Generator is the generative model surface used for answer synthesis.
type Generator interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
}

// Answer is the synthesized response plus the distinct source URLs of the
// passages that backed it.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Pipeline wires retrieval and synthesis together.
type Pipeline struct {
	embedder    Embedder
	index       VectorIndex
	store       DocumentStore
	generator   Generator
	model       string
	defaultTopK int
}

// New creates an answer pipeline. defaultTopK applies when a query does not
// specify its own retrieval depth.
func New(embedder Embedder, index VectorIndex, store DocumentStore, generator Generator, model string, defaultTopK int) *Pipeline {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Pipeline{
		embedder:    embedder,
		index:       index,
		store:       store,
		generator:   generator,
		model:       model,
		defaultTopK: defaultTopK,
	}
}

// Answer embeds the question, retrieves the topK nearest chunks, resolves
// them against the document store, and synthesizes an answer. Hits that no
// longer resolve are dropped silently; an empty context still produces a
// model call so the model can say it does not know.
func (p *Pipeline) Answer(ctx context.Context, question string, topK int) (*Answer, error) {
	if topK <= 0 {
		topK = p.defaultTopK
	}

	embedding, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	refs, err := p.index.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	passages, sources, err := p.resolve(ctx, dedupe(refs))
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(question, strings.Join(passages, "\n\n"))
	text, err := p.generator.Complete(ctx, p.model, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("answer synthesis failed: %w", err)
	}

	slog.Debug("answered question", "hits", len(refs), "passages", len(passages))
	return &Answer{Answer: text, Sources: sources}, nil
}

// dedupe drops repeat (document, chunk) pairs, keeping the first occurrence
// so nearer hits win.
func dedupe(refs []models.ChunkRef) []models.ChunkRef {
	seen := make(map[[2]string]bool, len(refs))
	out := refs[:0:0]
	for _, ref := range refs {
		key := [2]string{ref.DocumentID, ref.ChunkKey}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ref)
	}
	return out
}

// resolve loads the text behind each hit. Hits whose document is gone or no
// longer carries the referenced chunk are skipped, not errors: the vector
// index may lag the document store.
func (p *Pipeline) resolve(ctx context.Context, refs []models.ChunkRef) ([]string, []string, error) {
	var passages []string
	var sources []string
	seenSource := make(map[string]bool)

	for _, ref := range refs {
		doc, err := p.store.FindByID(ctx, ref.DocumentID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve document %s: %w", ref.DocumentID, err)
		}
		if doc == nil {
			slog.Warn("dropping hit for missing document", "doc_id", ref.DocumentID)
			continue
		}

		text, ok := chunkText(doc.Data, ref.ChunkKey)
		if !ok {
			slog.Warn("dropping hit for missing chunk", "doc_id", ref.DocumentID, "chunk_key", ref.ChunkKey)
			continue
		}

		passages = append(passages, text)
		if !seenSource[doc.URL] {
			seenSource[doc.URL] = true
			sources = append(sources, doc.URL)
		}
	}

	return passages, sources, nil
}

// chunkText looks the chunk key up in the stored document, mirroring how the
// chunks were derived at ingestion time.
func chunkText(data models.StructuredData, key string) (string, bool) {
	if data.IsSectioned() {
		section, ok := data.Sections[key]
		return section.Text, ok
	}
	if key == models.FallbackChunkKey && data.Text != "" {
		return data.Text, true
	}
	return "", false
}

func buildPrompt(question, context string) string {
	return fmt.Sprintf("Use the following contexts to answer the question.\n%s\n\nQuestion: %s\nAnswer:", context, question)
}
