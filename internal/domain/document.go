package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the lifecycle state of an ingested document
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
	DocumentStatusDeleted    DocumentStatus = "deleted"
)

// Document is one ingested source file.
//
// ContentHash is unique among documents whose status is not deleted.
// RemoteFileID, RemoteChecksum and FileKey are empty for locally supplied files.
type Document struct {
	ID               string
	Filename         string
	Title            string
	ContentHash      string
	RemoteFileID     string
	RemoteChecksum   string
	RemoteModifiedAt *time.Time
	FileKey          string
	Status           DocumentStatus
	ChunkCount       int
	ErrorMessage     string
	Metadata         DocumentMetadata
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// NewDocument creates a Document in processing state
func NewDocument(id, filename, contentHash string, now time.Time) *Document {
	return &Document{
		ID:          id,
		Filename:    filename,
		ContentHash: contentHash,
		Status:      DocumentStatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsDeleted reports whether the document has been soft-deleted
func (d *Document) IsDeleted() bool {
	return d.Status == DocumentStatusDeleted
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.ContentHash == "" {
		return fmt.Errorf("document ContentHash is required")
	}

	if !IsValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	if d.Status == DocumentStatusDeleted && d.DeletedAt == nil {
		return fmt.Errorf("deleted document must have DeletedAt set")
	}

	if d.ChunkCount < 0 {
		return fmt.Errorf("document ChunkCount cannot be negative")
	}

	return nil
}

// IsValidDocumentStatus checks if a DocumentStatus is valid
func IsValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusCompleted,
		DocumentStatusFailed, DocumentStatusDeleted:
		return true
	}
	return false
}
