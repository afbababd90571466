package domain

import "time"

// EmbeddingDimensions is the fixed width of the embedding column.
// Chunks imported without embeddings carry an all-zero vector of this
// length so the schema stays uniform; vector search must not be used
// against those placeholders.
const EmbeddingDimensions = 1536

// DocumentChunk is the atomic retrievable unit of the corpus. A source
// document is split into one chunk per section at import time.
type DocumentChunk struct {
	ID        int64
	Title     string
	Content   string
	Slug      string
	Section   string
	Embedding []float32
	CreatedAt time.Time
}

// Sentinel section labels assigned by the chunker.
const (
	SectionMain         = "main"
	SectionIntroduction = "introduction"
)

// DocumentMetadata is the navigation projection of a chunk.
type DocumentMetadata struct {
	Title   string
	Slug    string
	Section string
}

// IsPlaceholderEmbedding reports whether the embedding is the all-zero
// placeholder stored when no embedding provider was configured.
func (c *DocumentChunk) IsPlaceholderEmbedding() bool {
	for _, v := range c.Embedding {
		if v != 0 {
			return false
		}
	}
	return len(c.Embedding) > 0
}

// ValidateChunk checks the invariants a chunk must satisfy before it
// may be stored.
func ValidateChunk(c *DocumentChunk) error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.Title == "" || c.Slug == "" || c.Section == "" {
		return ErrMissingRequiredField
	}
	if c.Content == "" {
		return ErrEmptyChunkContent
	}
	if len(c.Embedding) > EmbeddingDimensions {
		return ErrEmbeddingTooLong
	}
	return nil
}
