package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type jobView struct {
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
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJob(w io.Writer, format string, j *domain.IngestionJob) error {
	if format == outputJSON {
		errorLog := j.ErrorLog
		if errorLog == nil {
			errorLog = []domain.JobError{}
		}
		return printJSON(w, jobView{
			ID:             j.ID,
			Type:           string(j.Type),
			Status:         string(j.Status),
			Label:          j.Label,
			RootID:         j.RootID,
			TotalItems:     j.TotalItems,
			ProcessedCount: j.ProcessedCount,
			FailedCount:    j.FailedCount,
			ErrorLog:       errorLog,
			SyncStats:      j.SyncStats,
			StartedAt:      j.StartedAt,
			CompletedAt:    j.CompletedAt,
		})
	}

	fmt.Fprintf(w, "Job %s (%s) %s\n", j.ID, j.Type, statusString(j.Status))
	if j.Label != "" {
		fmt.Fprintf(w, "  label:     %s\n", j.Label)
	}
	fmt.Fprintf(w, "  root:      %s\n", j.RootID)
	fmt.Fprintf(w, "  items:     %d processed, %d failed, %d total\n", j.ProcessedCount, j.FailedCount, j.TotalItems)
	if s := j.SyncStats; s != nil {
		fmt.Fprintf(w, "  sync:      %d added, %d updated, %d deleted, %d unchanged\n", s.Added, s.Updated, s.Deleted, s.Unchanged)
	}
	fmt.Fprintf(w, "  started:   %s\n", j.StartedAt.Format(time.RFC3339))
	if j.CompletedAt != nil {
		fmt.Fprintf(w, "  completed: %s (%s)\n", j.CompletedAt.Format(time.RFC3339), j.CompletedAt.Sub(j.StartedAt).Round(time.Second))
	}
	if len(j.ErrorLog) > 0 {
		fmt.Fprintln(w, "  errors:")
		for _, e := range j.ErrorLog {
			if e.Item == "" {
				fmt.Fprintf(w, "    %s\n", e.Error)
				continue
			}
			fmt.Fprintf(w, "    [%s] %s: %s\n", e.Action, e.Item, e.Error)
		}
	}
	return nil
}

func statusString(s domain.JobStatus) string {
	switch s {
	case domain.JobStatusCompleted:
		return color.GreenString(string(s))
	case domain.JobStatusFailed:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}

type jobStatusReader interface {
	GetJobStatus(ctx context.Context, jobID string) (*domain.IngestionJob, error)
}

// watchJob polls the job until it reaches a terminal status. When progress
// is non-nil a bar tracks processed+failed against the total.
func watchJob(ctx context.Context, jobs jobStatusReader, jobID string, interval time.Duration, progress io.Writer) (*domain.IngestionJob, error) {
	var bar *progressbar.ProgressBar
	defer func() {
		if bar != nil {
			_ = bar.Finish()
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := jobs.GetJobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		// The total is known only once listing finishes.
		if progress != nil && job.TotalItems > 0 {
			if bar == nil {
				bar = newJobProgressBar(progress, job.TotalItems)
			}
			_ = bar.Set(job.ProcessedCount + job.FailedCount)
		}
		if job.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newJobProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
