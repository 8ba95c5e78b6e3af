package service

import (
	"context"
	"log"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/telemetry"
)

// StartSync creates a sync job and reconciles the store with the remote tree
// in the background.
func (s *IngestionService) StartSync(ctx context.Context, in RunInput) (string, error) {
	if err := s.validate(&in); err != nil {
		return "", err
	}
	job, err := s.createJob(ctx, domain.JobTypeSync, in)
	if err != nil {
		return "", err
	}

	s.background(ctx, "sync", func(ctx context.Context) error {
		return s.runSync(ctx, job, in)
	})
	return job.ID, nil
}

// RunSync ingests new remote files, re-processes modified ones and soft
// deletes documents whose file is gone, returning once the job is finalized.
func (s *IngestionService) RunSync(ctx context.Context, in RunInput) (string, error) {
	if err := s.validate(&in); err != nil {
		return "", err
	}
	job, err := s.createJob(ctx, domain.JobTypeSync, in)
	if err != nil {
		return "", err
	}
	return job.ID, s.runSync(ctx, job, in)
}

func (s *IngestionService) runSync(ctx context.Context, job *domain.IngestionJob, in RunInput) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.RunSync", telemetry.SpanAttributes{
		JobID:     job.ID,
		Operation: "sync",
	})
	defer span.End()

	files, err := s.files.List(ctx, in.RootID, in.PathPrefix)
	if err != nil {
		span.SetError(err)
		return s.failJob(ctx, job, domain.ErrDiscoveryFailure.Wrap(err))
	}

	known, err := s.docs.ListWithRemoteID(ctx)
	if err != nil {
		span.SetError(err)
		return s.failJob(ctx, job, domain.ErrStorageFailure.Wrap(err))
	}

	plan := Classify(files, known)
	log.Printf("[sync] job %s: %d new, %d modified, %d removed, %d unchanged",
		job.ID, len(plan.ToIngest), len(plan.ToUpdate), len(plan.ToDelete), len(plan.Unchanged))

	if err := s.setTotal(ctx, job, plan.Total()); err != nil {
		span.SetError(err)
		return s.failJob(ctx, job, err)
	}

	progress := startProgress(ctx, s.jobs, job, s.now)

	nIngest := len(plan.ToIngest)
	s.runBounded(ctx, in.Concurrency, nIngest+len(plan.ToUpdate), func(ctx context.Context, i int) {
		if i < nIngest {
			f := plan.ToIngest[i]
			res := s.ingestRemote(ctx, f)
			progress.record(itemName(f), domain.JobActionIngest, itemError(ctx, res.Err))
			return
		}
		pair := plan.ToUpdate[i-nIngest]
		res := s.updateRemote(ctx, pair)
		progress.record(itemName(pair.Remote), domain.JobActionUpdate, itemError(ctx, res.Err))
	})

	for _, doc := range plan.ToDelete {
		err := s.pipeline.SoftDelete(ctx, doc.ID)
		progress.record(documentName(doc), domain.JobActionDelete, err)
	}
	progress.close()

	job.SyncStats = &domain.SyncStats{
		Added:     len(plan.ToIngest) - progress.failures(domain.JobActionIngest),
		Updated:   len(plan.ToUpdate) - progress.failures(domain.JobActionUpdate),
		Deleted:   progress.successes(domain.JobActionDelete),
		Unchanged: len(plan.Unchanged),
	}

	if err := s.completeJob(ctx, job); err != nil {
		span.SetError(err)
		return err
	}
	log.Printf("[sync] job %s completed: added=%d updated=%d deleted=%d unchanged=%d failed=%d",
		job.ID, job.SyncStats.Added, job.SyncStats.Updated, job.SyncStats.Deleted, job.SyncStats.Unchanged, job.FailedCount)
	return nil
}

func (s *IngestionService) updateRemote(ctx context.Context, pair UpdatePair) IngestResult {
	input, err := s.ingestInput(ctx, pair.Remote)
	if err != nil {
		return failedResult(pair.Document.ID, err)
	}
	return s.pipeline.Update(ctx, pair.Document.ID, input)
}

func documentName(d *domain.Document) string {
	if d.Metadata.SourcePath != "" {
		return d.Metadata.SourcePath
	}
	return d.Filename
}
