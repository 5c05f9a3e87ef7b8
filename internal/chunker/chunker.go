// Package chunker derives the embeddable chunks of a structured document.
package chunker

import (
	"sort"

	"articlerag/pkg/models"
)

// Chunks derives the ordered chunk set of a structured document. It is a
// pure function: the same data always yields the same chunks.
//
// Sectioned documents yield one chunk per section keyed by the section key;
// keys are sorted for a stable order, since chunk identity is the key, not
// the position. Flat documents yield a single "content" chunk. Sections with
// empty text still yield chunks here; callers skip them before embedding.
func Chunks(data models.StructuredData) []models.Chunk {
	if data.IsSectioned() {
		keys := make([]string, 0, len(data.Sections))
		for key := range data.Sections {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		chunks := make([]models.Chunk, 0, len(keys))
		for _, key := range keys {
			chunks = append(chunks, models.Chunk{Key: key, Text: data.Sections[key].Text})
		}
		return chunks
	}

	if data.Text != "" {
		return []models.Chunk{{Key: models.FallbackChunkKey, Text: data.Text}}
	}

	return nil
}
