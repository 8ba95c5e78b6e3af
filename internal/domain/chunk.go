package domain

import "time"

// Chunk is one bounded segment of a document's extracted text.
// Index runs 0..ChunkCount-1 without gaps.
type Chunk struct {
	ID          string
	DocumentID  string
	Index       int
	Content     string
	ContentHash string
	TokenCount  int
	Embedding   []float32
	Metadata    ChunkMetadata
	CreatedAt   time.Time
}
