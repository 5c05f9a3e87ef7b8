package models

import "time"

// FallbackChunkKey is the chunk key used for documents that carry a single
// flat text instead of sections.
const FallbackChunkKey = "content"

// Section is one named span of a structured article.
type Section struct {
	Heading string `json:"heading,omitempty"`
	Text    string `json:"text"`
}

// StructuredData is the payload produced by the structurer. It has two
// shapes: a sectioned article (title/author/date plus a sections mapping) or
// a flat fallback carrying the raw extracted text.
type StructuredData struct {
	Title    string             `json:"title,omitempty"`
	Author   string             `json:"author,omitempty"`
	Date     string             `json:"date,omitempty"`
	Sections map[string]Section `json:"sections,omitempty"`
	Text     string             `json:"text,omitempty"`
}

// IsSectioned reports whether the data carries a non-empty sections mapping.
func (d StructuredData) IsSectioned() bool {
	return len(d.Sections) > 0
}

// Flat wraps raw text in the fallback shape.
func Flat(text string) StructuredData {
	return StructuredData{Text: text}
}

// Document is an ingested article as stored in the document store.
// Documents are insert-only: re-ingesting a URL creates a new document.
type Document struct {
	ID        string         `json:"id"`
	URL       string         `json:"url"`
	Data      StructuredData `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// Chunk is a named span of document text, the unit of embedding and
// retrieval. Its identity within a document is the key, not its position.
type Chunk struct {
	Key  string
	Text string
}

// ChunkRef is the metadata stored alongside each vector, linking a vector
// index hit back to its document and chunk.
type ChunkRef struct {
	DocumentID string `json:"document_id"`
	ChunkKey   string `json:"chunk_key"`
	SourceURL  string `json:"source_url"`
}
