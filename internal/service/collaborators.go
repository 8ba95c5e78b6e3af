package service

import (
	"context"

	"github.com/cloo-solutions/examvault/internal/chunker"
	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/parser"
	"github.com/google/uuid"
)

// FileStore lists and downloads files from the remote document tree.
type FileStore interface {
	List(ctx context.Context, rootID, pathPrefix string) ([]domain.RemoteFile, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Parser extracts text from raw file content.
type Parser interface {
	Parse(ctx context.Context, content []byte, filename string) (*parser.Result, error)
}

// Chunker splits text into segments.
type Chunker interface {
	Chunk(text string) []chunker.Segment
}

// Embedder returns one vector per input text, in input order. Retryable
// failures wrap domain.ErrEmbedTransient.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BlobStore keeps a copy of original files.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
}

// ChunkClassifier assigns a content type to each chunk. Optional.
type ChunkClassifier interface {
	Classify(ctx context.Context, doc *domain.Document, chunks []string) ([]string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
