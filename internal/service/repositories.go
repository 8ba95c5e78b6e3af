package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/pagination"
)

// DocumentRepository defines document persistence.
type DocumentRepository interface {
	// Create inserts a processing document. A content hash already held by an
	// active document yields domain.ErrDuplicateContent.
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	FindActiveByContentHash(ctx context.Context, hash string) (*domain.Document, error)
	ListWithRemoteID(ctx context.Context) ([]*domain.Document, error)
	List(ctx context.Context, filter DocumentFilter) (*DocumentPage, error)
	// Complete writes status, chunk count and metadata of a finished document.
	Complete(ctx context.Context, d *domain.Document) error
	Fail(ctx context.Context, id string, message string, now time.Time) error
	// UpdateSource stores new content identity and remote fields and puts the
	// document back into processing.
	UpdateSource(ctx context.Context, d *domain.Document) error
	RefreshRemote(ctx context.Context, id, checksum string, modifiedAt *time.Time, now time.Time) error
	SoftDelete(ctx context.Context, id string, now time.Time) error
	PurgeDeleted(ctx context.Context, cutoff time.Time) ([]*domain.Document, error)
}

// ChunkRepository defines chunk persistence.
type ChunkRepository interface {
	Replace(ctx context.Context, documentID string, chunks []domain.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
}

// JobRepository defines ingestion job persistence.
type JobRepository interface {
	Create(ctx context.Context, job *domain.IngestionJob) error
	GetByID(ctx context.Context, id string) (*domain.IngestionJob, error)
	Update(ctx context.Context, job *domain.IngestionJob) error
}

// DocumentFilter narrows a document listing.
type DocumentFilter struct {
	Status domain.DocumentStatus
	Cursor *pagination.Cursor
	Limit  int
}

type DocumentPage struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}
