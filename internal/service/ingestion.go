package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/pagination"
	"github.com/cloo-solutions/examvault/internal/pathmeta"
	"github.com/cloo-solutions/examvault/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 5
	DefaultItemTimeout = 5 * time.Minute
	defaultPageLimit   = 20
	maxPageLimit       = 100
)

// IngestionDeps wires an IngestionService. Blobs may be nil.
type IngestionDeps struct {
	Documents   DocumentRepository
	Jobs        JobRepository
	Files       FileStore
	Blobs       BlobStore
	Pipeline    *Pipeline
	UUIDGen     UUIDGenerator
	Now         func() time.Time
	Concurrency int
	ItemTimeout time.Duration
}

// IngestionService runs batch and sync jobs over the remote file tree and
// exposes job status, document listing and retention reaping.
type IngestionService struct {
	docs        DocumentRepository
	jobs        JobRepository
	files       FileStore
	blobs       BlobStore
	pipeline    *Pipeline
	uuidGen     UUIDGenerator
	now         func() time.Time
	concurrency int
	itemTimeout time.Duration

	wg sync.WaitGroup
}

func NewIngestionService(deps IngestionDeps) *IngestionService {
	s := &IngestionService{
		docs:        deps.Documents,
		jobs:        deps.Jobs,
		files:       deps.Files,
		blobs:       deps.Blobs,
		pipeline:    deps.Pipeline,
		uuidGen:     deps.UUIDGen,
		now:         deps.Now,
		concurrency: deps.Concurrency,
		itemTimeout: deps.ItemTimeout,
	}
	if s.uuidGen == nil {
		s.uuidGen = &DefaultUUIDGenerator{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}
	if s.itemTimeout <= 0 {
		s.itemTimeout = DefaultItemTimeout
	}
	return s
}

// RunInput selects the remote subtree a batch or sync job works on.
type RunInput struct {
	RootID      string
	Label       string
	PathPrefix  string
	Concurrency int
}

func (s *IngestionService) validate(in *RunInput) error {
	if in.RootID == "" {
		return domain.ErrMissingRequiredField.Wrap(errors.New("root_id"))
	}
	if in.Concurrency < 0 {
		return domain.ErrInvalidConcurrency
	}
	if in.Concurrency == 0 {
		in.Concurrency = s.concurrency
	}
	return nil
}

// GetJobStatus returns the latest persisted snapshot of a job.
func (s *IngestionService) GetJobStatus(ctx context.Context, jobID string) (*domain.IngestionJob, error) {
	if jobID == "" {
		return nil, domain.ErrJobNotFound
	}
	return s.jobs.GetByID(ctx, jobID)
}

type ListDocumentsInput struct {
	Status domain.DocumentStatus
	Cursor string
	Limit  int
}

// ListDocuments pages through documents, newest first.
func (s *IngestionService) ListDocuments(ctx context.Context, in ListDocumentsInput) (*DocumentPage, error) {
	if in.Status != "" && !domain.IsValidDocumentStatus(in.Status) {
		return nil, domain.ErrInvalidDocumentStatus
	}

	cursor, err := pagination.DecodeCursor(in.Cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor.Wrap(err)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return s.docs.List(ctx, DocumentFilter{Status: in.Status, Cursor: cursor, Limit: limit})
}

// Wait blocks until every job started in the background has finished.
func (s *IngestionService) Wait() {
	s.wg.Wait()
}

func (s *IngestionService) createJob(ctx context.Context, jobType domain.JobType, in RunInput) (*domain.IngestionJob, error) {
	job := domain.NewIngestionJob(s.uuidGen.NewString(), jobType, in.RootID, in.Label, s.now())
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// background runs fn on a context that survives the caller's request.
func (s *IngestionService) background(ctx context.Context, name string, fn func(ctx context.Context) error) {
	bctx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(bctx); err != nil {
			log.Printf("[%s] %v", name, err)
		}
	}()
}

// failJob finalizes a job that could not run its items.
func (s *IngestionService) failJob(ctx context.Context, job *domain.IngestionJob, cause error) error {
	job.Status = domain.JobStatusFailed
	job.ErrorLog = append(job.ErrorLog, domain.JobError{
		Error:     cause.Error(),
		Timestamp: s.now(),
	})
	completed := s.now()
	job.CompletedAt = &completed

	if err := s.jobs.Update(context.WithoutCancel(ctx), job); err != nil {
		log.Printf("[%s] persist failed job %s: %v", job.Type, job.ID, err)
	}
	telemetry.CaptureError(ctx, cause)
	return cause
}

func (s *IngestionService) completeJob(ctx context.Context, job *domain.IngestionJob) error {
	job.Status = domain.JobStatusCompleted
	completed := s.now()
	job.CompletedAt = &completed
	return s.jobs.Update(context.WithoutCancel(ctx), job)
}

func (s *IngestionService) setTotal(ctx context.Context, job *domain.IngestionJob, total int) error {
	job.TotalItems = total
	return s.jobs.Update(ctx, job)
}

// runBounded runs n items with at most limit in flight. Each item gets its
// own deadline; item errors never cancel siblings.
func (s *IngestionService) runBounded(ctx context.Context, limit, n int, fn func(ctx context.Context, i int)) {
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			ictx, cancel := context.WithTimeout(ctx, s.itemTimeout)
			defer cancel()
			fn(ictx, i)
			return nil
		})
	}
	_ = g.Wait()
}

// itemError maps an error that happened under an expired item deadline to
// an orchestration timeout.
func itemError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrOrchestrationTimeout) {
		return domain.ErrOrchestrationTimeout.Wrap(err)
	}
	return err
}

// ingestInput downloads a remote file and derives its document metadata.
func (s *IngestionService) ingestInput(ctx context.Context, f domain.RemoteFile) (IngestInput, error) {
	desc := pathmeta.Describe(f)
	content, err := s.files.Download(ctx, f.ID)
	if err != nil {
		return IngestInput{}, err
	}
	return IngestInput{
		Content:          content,
		Filename:         f.Name,
		Title:            desc.Title,
		RemoteFileID:     f.ID,
		RemoteChecksum:   f.Checksum,
		RemoteModifiedAt: f.ModifiedTime,
		FileKey:          desc.FileKey,
		Metadata:         desc.Metadata,
	}, nil
}

func itemName(f domain.RemoteFile) string {
	if f.Path != "" {
		return f.Path
	}
	return f.Name
}
