package domain

import (
	"fmt"
	"time"
)

// JobType distinguishes batch runs from sync runs
type JobType string

const (
	JobTypeBatch JobType = "batch"
	JobTypeSync  JobType = "sync"
)

// JobStatus represents the status of an ingestion job
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Actions recorded in a job's error log
const (
	JobActionIngest = "ingest"
	JobActionUpdate = "update"
	JobActionDelete = "delete"
)

// JobError is one entry of a job's error log.
type JobError struct {
	Item      string    `json:"item,omitempty"`
	Action    string    `json:"action,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncStats summarises a sync run. Added and Updated exclude failed items.
type SyncStats struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// IngestionJob tracks one batch or sync run.
// Failed status is reserved for orchestration-level failure; item failures
// only increment FailedCount.
type IngestionJob struct {
	ID             string
	Type           JobType
	Status         JobStatus
	Label          string
	RootID         string
	TotalItems     int
	ProcessedCount int
	FailedCount    int
	ErrorLog       []JobError
	SyncStats      *SyncStats
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// NewIngestionJob creates a running job
func NewIngestionJob(id string, jobType JobType, rootID, label string, startedAt time.Time) *IngestionJob {
	return &IngestionJob{
		ID:        id,
		Type:      jobType,
		Status:    JobStatusRunning,
		Label:     label,
		RootID:    rootID,
		ErrorLog:  []JobError{},
		StartedAt: startedAt,
	}
}

// IsTerminal reports whether the job has finished
func (j *IngestionJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// ValidateIngestionJob validates an IngestionJob instance
func ValidateIngestionJob(j *IngestionJob) error {
	if j == nil {
		return fmt.Errorf("ingestion job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("ingestion job ID is required")
	}

	if !isValidJobType(j.Type) {
		return fmt.Errorf("ingestion job Type is invalid: %s", j.Type)
	}

	if !isValidJobStatus(j.Status) {
		return fmt.Errorf("ingestion job Status is invalid: %s", j.Status)
	}

	if j.ProcessedCount < 0 || j.FailedCount < 0 || j.TotalItems < 0 {
		return fmt.Errorf("ingestion job counters cannot be negative")
	}

	if j.ProcessedCount+j.FailedCount > j.TotalItems {
		return fmt.Errorf("ingestion job processed+failed (%d) exceeds total (%d)",
			j.ProcessedCount+j.FailedCount, j.TotalItems)
	}

	if j.SyncStats != nil && j.Type != JobTypeSync {
		return fmt.Errorf("only sync jobs carry SyncStats")
	}

	return nil
}

func isValidJobType(t JobType) bool {
	switch t {
	case JobTypeBatch, JobTypeSync:
		return true
	}
	return false
}

func isValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}
