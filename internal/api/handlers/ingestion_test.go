package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) StartBatch(ctx context.Context, in service.RunInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockIngestionService) StartSync(ctx context.Context, in service.RunInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockIngestionService) GetJobStatus(ctx context.Context, jobID string) (*domain.IngestionJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionJob), args.Error(1)
}

func (m *MockIngestionService) Reap(ctx context.Context, retentionDays int) (int, error) {
	args := m.Called(ctx, retentionDays)
	return args.Int(0), args.Error(1)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestIngestionHandler_StartBatch(t *testing.T) {
	svc := new(MockIngestionService)
	svc.On("StartBatch", mock.Anything, service.RunInput{
		RootID:      "root-1",
		Label:       "june",
		PathPrefix:  "AQA/GCSE",
		Concurrency: 3,
	}).Return("job-1", nil)

	h := NewIngestionHandler(svc, 30)

	body := `{"root_id":"root-1","label":"june","path_prefix":"AQA/GCSE","concurrency":3}`
	req := httptest.NewRequest(http.MethodPost, "/v1/ingestion/batch", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.StartBatch(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/v1/ingestion/jobs/job-1", w.Header().Get("Location"))

	var resp StartJobResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
	assert.Equal(t, "job-1", resp.JobID)
	svc.AssertExpectations(t)
}

func TestIngestionHandler_StartSync(t *testing.T) {
	svc := new(MockIngestionService)
	svc.On("StartSync", mock.Anything, service.RunInput{RootID: "root-1"}).Return("job-2", nil)

	h := NewIngestionHandler(svc, 30)

	req := httptest.NewRequest(http.MethodPost, "/v1/ingestion/sync", strings.NewReader(`{"root_id":"root-1"}`))
	w := httptest.NewRecorder()

	h.StartSync(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "StartBatch", mock.Anything, mock.Anything)
}

func TestIngestionHandler_StartValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed body", `{`, "invalid request body"},
		{"missing root", `{"label":"x"}`, "root_id is required"},
		{"negative concurrency", `{"root_id":"r","concurrency":-1}`, "concurrency must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockIngestionService)
			h := NewIngestionHandler(svc, 30)

			req := httptest.NewRequest(http.MethodPost, "/v1/ingestion/batch", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.StartBatch(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeEnvelope(t, w).Error)
			svc.AssertNotCalled(t, "StartBatch", mock.Anything, mock.Anything)
		})
	}
}

func TestIngestionHandler_StartServiceError(t *testing.T) {
	svc := new(MockIngestionService)
	svc.On("StartBatch", mock.Anything, mock.Anything).Return("", domain.ErrStorageFailure)

	h := NewIngestionHandler(svc, 30)

	req := httptest.NewRequest(http.MethodPost, "/v1/ingestion/batch", strings.NewReader(`{"root_id":"r"}`))
	w := httptest.NewRecorder()

	h.StartBatch(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, domain.ErrCodeStorageFailure, decodeEnvelope(t, w).Code)
}

func TestIngestionHandler_GetJob(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(2 * time.Minute)
	job := &domain.IngestionJob{
		ID:             "job-1",
		Type:           domain.JobTypeSync,
		Status:         domain.JobStatusCompleted,
		RootID:         "root-1",
		TotalItems:     3,
		ProcessedCount: 2,
		FailedCount:    1,
		ErrorLog: []domain.JobError{
			{Item: "AQA/8300_2023_jun_qp1.pdf", Action: domain.JobActionUpdate, Error: "boom", Timestamp: started},
		},
		SyncStats:   &domain.SyncStats{Added: 1, Updated: 0, Deleted: 1, Unchanged: 4},
		StartedAt:   started,
		CompletedAt: &completed,
	}

	svc := new(MockIngestionService)
	svc.On("GetJobStatus", mock.Anything, "job-1").Return(job, nil)

	h := NewIngestionHandler(svc, 30)

	r := chi.NewRouter()
	r.Get("/v1/ingestion/jobs/{id}", h.GetJob)

	req := httptest.NewRequest(http.MethodGet, "/v1/ingestion/jobs/job-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp JobResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
	assert.Equal(t, "sync", resp.Type)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 2, resp.ProcessedCount)
	require.Len(t, resp.ErrorLog, 1)
	assert.Equal(t, "update", resp.ErrorLog[0].Action)
	require.NotNil(t, resp.SyncStats)
	assert.Equal(t, 4, resp.SyncStats.Unchanged)
	require.NotNil(t, resp.CompletedAt)
	assert.Equal(t, "2026-03-01T12:02:00Z", *resp.CompletedAt)
}

func TestIngestionHandler_GetJobNotFound(t *testing.T) {
	svc := new(MockIngestionService)
	svc.On("GetJobStatus", mock.Anything, "missing").Return(nil, domain.ErrJobNotFound)

	h := NewIngestionHandler(svc, 30)

	r := chi.NewRouter()
	r.Get("/v1/ingestion/jobs/{id}", h.GetJob)

	req := httptest.NewRequest(http.MethodGet, "/v1/ingestion/jobs/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestionHandler_RunningJobHasEmptyErrorLog(t *testing.T) {
	job := domain.NewIngestionJob("job-1", domain.JobTypeBatch, "root", "", time.Now())
	job.ErrorLog = nil

	resp := jobToResponse(job)

	assert.NotNil(t, resp.ErrorLog)
	assert.Nil(t, resp.CompletedAt)
	assert.Nil(t, resp.SyncStats)
}

func TestIngestionHandler_Reap(t *testing.T) {
	t.Run("explicit retention", func(t *testing.T) {
		svc := new(MockIngestionService)
		svc.On("Reap", mock.Anything, 7).Return(3, nil)
		h := NewIngestionHandler(svc, 30)

		req := httptest.NewRequest(http.MethodPost, "/v1/ingestion/reap", bytes.NewBufferString(`{"retention_days":7}`))
		w := httptest.NewRecorder()
		h.Reap(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp ReapResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
		assert.Equal(t, 3, resp.Deleted)
		assert.Equal(t, 7, resp.RetentionDays)
	})

	t.Run("zero retention is honoured", func(t *testing.T) {
		svc := new(MockIngestionService)
		svc.On("Reap", mock.Anything, 0).Return(1, nil)
		h := NewIngestionHandler(svc, 30)

		req := httptest.NewRequest(http.MethodPost, "/v1/ingestion/reap", bytes.NewBufferString(`{"retention_days":0}`))
		w := httptest.NewRecorder()
		h.Reap(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("empty body uses configured retention", func(t *testing.T) {
		svc := new(MockIngestionService)
		svc.On("Reap", mock.Anything, 30).Return(0, nil)
		h := NewIngestionHandler(svc, 30)

		req := httptest.NewRequest(http.MethodPost, "/v1/ingestion/reap", http.NoBody)
		w := httptest.NewRecorder()
		h.Reap(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("negative retention rejected by service", func(t *testing.T) {
		svc := new(MockIngestionService)
		svc.On("Reap", mock.Anything, -1).Return(0, domain.ErrInvalidRetention)
		h := NewIngestionHandler(svc, 30)

		req := httptest.NewRequest(http.MethodPost, "/v1/ingestion/reap", bytes.NewBufferString(`{"retention_days":-1}`))
		w := httptest.NewRecorder()
		h.Reap(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, domain.ErrCodeValidation, decodeEnvelope(t, w).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockIngestionService)
		h := NewIngestionHandler(svc, 30)

		req := httptest.NewRequest(http.MethodPost, "/v1/ingestion/reap", bytes.NewBufferString(`{"retention_days":"x"}`))
		w := httptest.NewRecorder()
		h.Reap(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Reap", mock.Anything, mock.Anything)
	})
}
