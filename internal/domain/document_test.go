package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	now := time.Now()
	doc := NewDocument("doc1", "8461_2024_jun_p1_higher_qp.pdf", "abc123", now)

	assert.Equal(t, "doc1", doc.ID)
	assert.Equal(t, DocumentStatusProcessing, doc.Status)
	assert.Equal(t, now, doc.CreatedAt)
	assert.Equal(t, now, doc.UpdatedAt)
	assert.Nil(t, doc.DeletedAt)
	assert.False(t, doc.IsDeleted())
}

func TestValidateDocument(t *testing.T) {
	deletedAt := time.Now()

	tests := []struct {
		name    string
		doc     *Document
		wantErr bool
		errMsg  string
	}{
		{"valid", &Document{ID: "d", ContentHash: "h", Status: DocumentStatusCompleted, ChunkCount: 4}, false, ""},
		{"nil", nil, true, "cannot be nil"},
		{"missing id", &Document{ContentHash: "h", Status: DocumentStatusCompleted}, true, "ID is required"},
		{"missing hash", &Document{ID: "d", Status: DocumentStatusCompleted}, true, "ContentHash is required"},
		{"bad status", &Document{ID: "d", ContentHash: "h", Status: "archived"}, true, "Status is invalid"},
		{"deleted without timestamp", &Document{ID: "d", ContentHash: "h", Status: DocumentStatusDeleted}, true, "DeletedAt"},
		{"deleted with timestamp", &Document{ID: "d", ContentHash: "h", Status: DocumentStatusDeleted, DeletedAt: &deletedAt}, false, ""},
		{"negative chunks", &Document{ID: "d", ContentHash: "h", Status: DocumentStatusFailed, ChunkCount: -1}, true, "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDocumentMetadata_JSON(t *testing.T) {
	meta := DocumentMetadata{
		SourceType:  SourceTypePastPaper,
		Board:       "AQA",
		SubjectCode: "8461",
		Year:        2024,
		Extra:       map[string]string{"topic_slug": "cells"},
	}

	raw, err := MarshalMetadata(meta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"source_type":"past_paper","board":"AQA","subject_code":"8461","year":2024,"extra":{"topic_slug":"cells"}}`, string(raw))

	decoded, err := UnmarshalDocumentMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, meta, decoded)

	empty, err := UnmarshalDocumentMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, DocumentMetadata{}, empty)
}

func TestChunkMetadata_Empty(t *testing.T) {
	m, err := UnmarshalChunkMetadata([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "", m.ContentType)
}
