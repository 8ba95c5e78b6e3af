package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cloo-solutions/examvault/internal/api"
	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/service"
	"github.com/go-chi/chi/v5"
)

type IngestionService interface {
	StartBatch(ctx context.Context, in service.RunInput) (string, error)
	StartSync(ctx context.Context, in service.RunInput) (string, error)
	GetJobStatus(ctx context.Context, jobID string) (*domain.IngestionJob, error)
	Reap(ctx context.Context, retentionDays int) (int, error)
}

type IngestionHandler struct {
	svc           IngestionService
	retentionDays int
}

// NewIngestionHandler builds the handler. retentionDays applies to reap
// requests that do not name their own window.
func NewIngestionHandler(svc IngestionService, retentionDays int) *IngestionHandler {
	return &IngestionHandler{svc: svc, retentionDays: retentionDays}
}

type StartJobRequest struct {
	RootID      string `json:"root_id"`
	Label       string `json:"label"`
	PathPrefix  string `json:"path_prefix"`
	Concurrency int    `json:"concurrency"`
}

type StartJobResponse struct {
	JobID string `json:"job_id"`
}

type ReapRequest struct {
	RetentionDays *int `json:"retention_days"`
}

type ReapResponse struct {
	Deleted       int `json:"deleted"`
	RetentionDays int `json:"retention_days"`
}

type JobResponse struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	Status         string            `json:"status"`
	Label          string            `json:"label,omitempty"`
	RootID         string            `json:"root_id"`
	TotalItems     int               `json:"total_items"`
	ProcessedCount int               `json:"processed_count"`
	FailedCount    int               `json:"failed_count"`
	ErrorLog       []domain.JobError `json:"error_log"`
	SyncStats      *domain.SyncStats `json:"sync_stats,omitempty"`
	StartedAt      string            `json:"started_at"`
	CompletedAt    *string           `json:"completed_at,omitempty"`
}

func jobToResponse(j *domain.IngestionJob) *JobResponse {
	resp := &JobResponse{
		ID:             j.ID,
		Type:           string(j.Type),
		Status:         string(j.Status),
		Label:          j.Label,
		RootID:         j.RootID,
		TotalItems:     j.TotalItems,
		ProcessedCount: j.ProcessedCount,
		FailedCount:    j.FailedCount,
		ErrorLog:       j.ErrorLog,
		SyncStats:      j.SyncStats,
		StartedAt:      j.StartedAt.UTC().Format(time.RFC3339),
	}
	if resp.ErrorLog == nil {
		resp.ErrorLog = []domain.JobError{}
	}
	if j.CompletedAt != nil {
		completed := j.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

func (h *IngestionHandler) StartBatch(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, h.svc.StartBatch)
}

func (h *IngestionHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, h.svc.StartSync)
}

func (h *IngestionHandler) start(w http.ResponseWriter, r *http.Request, run func(context.Context, service.RunInput) (string, error)) {
	var req StartJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.DecodeError(w, err)
		return
	}

	if req.RootID == "" {
		api.Error(w, http.StatusBadRequest, "root_id is required")
		return
	}
	if req.Concurrency < 0 {
		api.Error(w, http.StatusBadRequest, "concurrency must not be negative")
		return
	}

	jobID, err := run(r.Context(), service.RunInput{
		RootID:      req.RootID,
		Label:       req.Label,
		PathPrefix:  req.PathPrefix,
		Concurrency: req.Concurrency,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Location", "/v1/ingestion/jobs/"+jobID)
	api.Success(w, http.StatusAccepted, StartJobResponse{JobID: jobID})
}

func (h *IngestionHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.GetJobStatus(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, jobToResponse(job))
}

// Reap accepts an empty body, in which case the configured retention applies.
func (h *IngestionHandler) Reap(w http.ResponseWriter, r *http.Request) {
	var req ReapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.DecodeError(w, err)
		return
	}

	days := h.retentionDays
	if req.RetentionDays != nil {
		days = *req.RetentionDays
	}

	deleted, err := h.svc.Reap(r.Context(), days)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ReapResponse{Deleted: deleted, RetentionDays: days})
}
