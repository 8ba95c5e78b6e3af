package service

import (
	"context"
	"log"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/telemetry"
)

// StartBatch creates a batch job and ingests the remote tree in the
// background. The returned job id can be polled with GetJobStatus.
func (s *IngestionService) StartBatch(ctx context.Context, in RunInput) (string, error) {
	if err := s.validate(&in); err != nil {
		return "", err
	}
	job, err := s.createJob(ctx, domain.JobTypeBatch, in)
	if err != nil {
		return "", err
	}

	s.background(ctx, "batch", func(ctx context.Context) error {
		return s.runBatch(ctx, job, in)
	})
	return job.ID, nil
}

// RunBatch ingests every supported file under the root and returns once the
// job is finalized. Item failures are recorded on the job, not returned.
func (s *IngestionService) RunBatch(ctx context.Context, in RunInput) (string, error) {
	if err := s.validate(&in); err != nil {
		return "", err
	}
	job, err := s.createJob(ctx, domain.JobTypeBatch, in)
	if err != nil {
		return "", err
	}
	return job.ID, s.runBatch(ctx, job, in)
}

func (s *IngestionService) runBatch(ctx context.Context, job *domain.IngestionJob, in RunInput) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.RunBatch", telemetry.SpanAttributes{
		JobID:     job.ID,
		Operation: "batch",
	})
	defer span.End()

	files, err := s.files.List(ctx, in.RootID, in.PathPrefix)
	if err != nil {
		span.SetError(err)
		return s.failJob(ctx, job, domain.ErrDiscoveryFailure.Wrap(err))
	}
	log.Printf("[batch] job %s: %d files under %s", job.ID, len(files), in.RootID)

	if err := s.setTotal(ctx, job, len(files)); err != nil {
		span.SetError(err)
		return s.failJob(ctx, job, err)
	}

	progress := startProgress(ctx, s.jobs, job, s.now)
	s.runBounded(ctx, in.Concurrency, len(files), func(ctx context.Context, i int) {
		f := files[i]
		res := s.ingestRemote(ctx, f)
		progress.record(itemName(f), domain.JobActionIngest, itemError(ctx, res.Err))
	})
	progress.close()

	if err := s.completeJob(ctx, job); err != nil {
		span.SetError(err)
		return err
	}
	log.Printf("[batch] job %s completed: %d processed, %d failed", job.ID, job.ProcessedCount, job.FailedCount)
	return nil
}

func (s *IngestionService) ingestRemote(ctx context.Context, f domain.RemoteFile) IngestResult {
	input, err := s.ingestInput(ctx, f)
	if err != nil {
		return failedResult("", err)
	}
	return s.pipeline.Ingest(ctx, input)
}
