package ingest

import (
	"context"
	"errors"
	"testing"

	"articlerag/internal/extractor"
	"articlerag/internal/structurer"
	"articlerag/pkg/models"
)

type stubExtractor struct {
	extraction *extractor.Extraction
	err        error
}

func (s *stubExtractor) Extract(ctx context.Context, url string) (*extractor.Extraction, error) {
	return s.extraction, s.err
}

type stubGenerator struct {
	response string
	err      error
}

func (s *stubGenerator) Complete(ctx context.Context, model, system, user string) (string, error) {
	return s.response, s.err
}

type memStore struct {
	nextID string
	urls   []string
	data   []models.StructuredData
	err    error
}

func (m *memStore) Insert(ctx context.Context, url string, data models.StructuredData) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.urls = append(m.urls, url)
	m.data = append(m.data, data)
	return m.nextID, nil
}

type memIndex struct {
	refs []models.ChunkRef
	err  error
}

func (m *memIndex) Insert(ctx context.Context, embedding []float32, ref models.ChunkRef, id string) error {
	if m.err != nil {
		return m.err
	}
	m.refs = append(m.refs, ref)
	return nil
}

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return []float32{0.1, 0.2}, s.err
}

type stubArchiver struct {
	calls int
	err   error
}

func (s *stubArchiver) PutSnapshot(ctx context.Context, url, html string) error {
	s.calls++
	return s.err
}

func newPipeline(ex Extractor, gen structurer.Generator, store DocumentStore, index VectorIndex, embedder Embedder, archive Archiver) *Pipeline {
	return New(ex, structurer.New(gen, "test-model"), store, index, embedder, archive)
}

func TestPipeline_SectionedIngestion(t *testing.T) {
	ex := &stubExtractor{extraction: &extractor.Extraction{Text: "raw text", Title: "T"}}
	gen := &stubGenerator{response: `{"title":"T","sections":{"intro":{"heading":"Intro","text":"first"},"body":{"heading":"Body","text":"second"},"empty":{"text":"  "}}}`}
	store := &memStore{nextID: "doc-1"}
	index := &memIndex{}
	embedder := &stubEmbedder{}

	result, err := newPipeline(ex, gen, store, index, embedder, nil).Run(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Status != "completed" || result.DocID != "doc-1" {
		t.Errorf("Run() = %+v, want completed/doc-1", result)
	}

	if len(store.data) != 1 || !store.data[0].IsSectioned() {
		t.Fatalf("stored data = %+v, want one sectioned document", store.data)
	}

	// Blank sections are skipped before embedding; the rest carry the
	// document id and their section key.
	if embedder.calls != 2 || len(index.refs) != 2 {
		t.Fatalf("embedded %d, indexed %d, want 2 and 2", embedder.calls, len(index.refs))
	}
	for _, ref := range index.refs {
		if ref.DocumentID != "doc-1" || ref.SourceURL != "https://example.com/a" {
			t.Errorf("ref = %+v, want doc-1 / source url", ref)
		}
		if ref.ChunkKey != "intro" && ref.ChunkKey != "body" {
			t.Errorf("unexpected chunk key %q", ref.ChunkKey)
		}
	}
}

func TestPipeline_StructuringFailureDegradesToFlat(t *testing.T) {
	ex := &stubExtractor{extraction: &extractor.Extraction{Text: "the raw article"}}
	gen := &stubGenerator{response: "not json at all"}
	store := &memStore{nextID: "doc-2"}
	index := &memIndex{}

	result, err := newPipeline(ex, gen, store, index, &stubEmbedder{}, nil).Run(context.Background(), "https://example.com/b")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.DocID != "doc-2" {
		t.Errorf("DocID = %q, want doc-2", result.DocID)
	}

	if len(store.data) != 1 || store.data[0].Text != "the raw article" || store.data[0].IsSectioned() {
		t.Fatalf("stored data = %+v, want flat fallback", store.data)
	}
	if len(index.refs) != 1 || index.refs[0].ChunkKey != models.FallbackChunkKey {
		t.Errorf("refs = %+v, want single content chunk", index.refs)
	}
}

func TestPipeline_FetchErrorAbortsBeforeStorage(t *testing.T) {
	ex := &stubExtractor{err: &extractor.FetchError{URL: "https://down.example", StatusCode: 404}}
	store := &memStore{nextID: "doc-3"}
	index := &memIndex{}

	_, err := newPipeline(ex, &stubGenerator{}, store, index, &stubEmbedder{}, nil).Run(context.Background(), "https://down.example")

	var fetchErr *extractor.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Run() error = %v, want FetchError", err)
	}
	if len(store.urls) != 0 || len(index.refs) != 0 {
		t.Error("nothing must be stored or indexed when fetching fails")
	}
}

func TestPipeline_EmbedErrorPropagates(t *testing.T) {
	ex := &stubExtractor{extraction: &extractor.Extraction{Text: "text"}}
	gen := &stubGenerator{response: `{"text":"text"}`}
	store := &memStore{nextID: "doc-4"}

	_, err := newPipeline(ex, gen, store, &memIndex{}, &stubEmbedder{err: errors.New("embed down")}, nil).Run(context.Background(), "https://example.com/c")
	if err == nil {
		t.Fatal("Run() error = nil, want embedding failure")
	}
	// The document was already persisted; only its vectors are missing.
	if len(store.urls) != 1 {
		t.Errorf("stored %d documents, want 1", len(store.urls))
	}
}

func TestPipeline_ArchiveFailureIsNotFatal(t *testing.T) {
	ex := &stubExtractor{extraction: &extractor.Extraction{Text: "text", RawHTML: "<html>x</html>"}}
	gen := &stubGenerator{response: `{"text":"text"}`}
	archive := &stubArchiver{err: errors.New("bucket unreachable")}

	result, err := newPipeline(ex, gen, &memStore{nextID: "doc-5"}, &memIndex{}, &stubEmbedder{}, archive).Run(context.Background(), "https://example.com/d")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if archive.calls != 1 {
		t.Errorf("archive calls = %d, want 1", archive.calls)
	}
	if result.Status != "completed" {
		t.Errorf("Status = %q, want completed", result.Status)
	}
}
