package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/examvault/internal/api"
	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/service"
)

type DocumentLister interface {
	ListDocuments(ctx context.Context, in service.ListDocumentsInput) (*service.DocumentPage, error)
}

type DocumentHandler struct {
	svc DocumentLister
}

func NewDocumentHandler(svc DocumentLister) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID             string                  `json:"id"`
	Filename       string                  `json:"filename"`
	Title          string                  `json:"title,omitempty"`
	Status         string                  `json:"status"`
	ContentHash    string                  `json:"content_hash"`
	RemoteFileID   string                  `json:"remote_file_id,omitempty"`
	RemoteChecksum string                  `json:"remote_checksum,omitempty"`
	FileKey        string                  `json:"file_key,omitempty"`
	ChunkCount     int                     `json:"chunk_count"`
	ErrorMessage   string                  `json:"error_message,omitempty"`
	Metadata       domain.DocumentMetadata `json:"metadata"`
	CreatedAt      string                  `json:"created_at"`
	UpdatedAt      string                  `json:"updated_at"`
	DeletedAt      *string                 `json:"deleted_at,omitempty"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:             d.ID,
		Filename:       d.Filename,
		Title:          d.Title,
		Status:         string(d.Status),
		ContentHash:    d.ContentHash,
		RemoteFileID:   d.RemoteFileID,
		RemoteChecksum: d.RemoteChecksum,
		FileKey:        d.FileKey,
		ChunkCount:     d.ChunkCount,
		ErrorMessage:   d.ErrorMessage,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      d.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if d.DeletedAt != nil {
		deleted := d.DeletedAt.UTC().Format(time.RFC3339)
		resp.DeletedAt = &deleted
	}
	return resp
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if limitStr := q.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	page, err := h.svc.ListDocuments(r.Context(), service.ListDocumentsInput{
		Status: domain.DocumentStatus(q.Get("status")),
		Cursor: q.Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		items[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}
