package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	db dbtx
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.IngestionJob) error {
	errorLog, syncStats, err := encodeJobJSON(job)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO ingestion_jobs (id, job_type, status, label, root_id, total_items, processed_count, failed_count,
			error_log, sync_stats, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, job.Type, job.Status, nullableString(job.Label), job.RootID, job.TotalItems, job.ProcessedCount,
		job.FailedCount, errorLog, syncStats, job.StartedAt, job.CompletedAt,
	)
	return err
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.IngestionJob, error) {
	if !validID(id) {
		return nil, domain.ErrJobNotFound
	}
	var job domain.IngestionJob
	var label pgtype.Text
	var errorLog, syncStats []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, job_type, status, label, root_id, total_items, processed_count, failed_count,
			error_log, sync_stats, started_at, completed_at
		 FROM ingestion_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.Type, &job.Status, &label, &job.RootID, &job.TotalItems, &job.ProcessedCount,
		&job.FailedCount, &errorLog, &syncStats, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	if label.Valid {
		job.Label = label.String
	}

	job.ErrorLog = []domain.JobError{}
	if len(errorLog) > 0 {
		if err := json.Unmarshal(errorLog, &job.ErrorLog); err != nil {
			return nil, err
		}
	}
	if len(syncStats) > 0 {
		var stats domain.SyncStats
		if err := json.Unmarshal(syncStats, &stats); err != nil {
			return nil, err
		}
		job.SyncStats = &stats
	}
	return &job, nil
}

// Update overwrites the mutable fields of a job with the given snapshot.
func (r *JobRepository) Update(ctx context.Context, job *domain.IngestionJob) error {
	if !validID(job.ID) {
		return domain.ErrJobNotFound
	}
	errorLog, syncStats, err := encodeJobJSON(job)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE ingestion_jobs
		 SET status = $2, total_items = $3, processed_count = $4, failed_count = $5,
		     error_log = $6, sync_stats = $7, completed_at = $8
		 WHERE id = $1`,
		job.ID, job.Status, job.TotalItems, job.ProcessedCount, job.FailedCount, errorLog, syncStats, job.CompletedAt,
	)
	if isInvalidText(err) {
		return domain.ErrJobNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func encodeJobJSON(job *domain.IngestionJob) (errorLog, syncStats []byte, err error) {
	entries := job.ErrorLog
	if entries == nil {
		entries = []domain.JobError{}
	}
	errorLog, err = json.Marshal(entries)
	if err != nil {
		return nil, nil, err
	}
	if job.SyncStats != nil {
		syncStats, err = json.Marshal(job.SyncStats)
		if err != nil {
			return nil, nil, err
		}
	}
	return errorLog, syncStats, nil
}
