package service

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/telemetry"
)

// itemEvent is the outcome of one work item, reported to the progress tracker.
type itemEvent struct {
	item   string
	action string
	err    error
}

// progressTracker owns a running job's counters and error log. A single
// goroutine applies events and persists a snapshot after each one, so workers
// never touch the job directly.
type progressTracker struct {
	jobs   JobRepository
	job    *domain.IngestionJob
	now    func() time.Time
	events chan itemEvent
	done   chan struct{}

	succeeded map[string]int
	failed    map[string]int
}

func startProgress(ctx context.Context, jobs JobRepository, job *domain.IngestionJob, now func() time.Time) *progressTracker {
	t := &progressTracker{
		jobs:      jobs,
		job:       job,
		now:       now,
		events:    make(chan itemEvent, 64),
		done:      make(chan struct{}),
		succeeded: make(map[string]int),
		failed:    make(map[string]int),
	}
	go t.run(context.WithoutCancel(ctx))
	return t
}

func (t *progressTracker) record(item, action string, err error) {
	t.events <- itemEvent{item: item, action: action, err: err}
}

// close stops accepting events and waits until every event is persisted.
// Counters may be read afterwards.
func (t *progressTracker) close() {
	close(t.events)
	<-t.done
}

func (t *progressTracker) run(ctx context.Context) {
	defer close(t.done)
	for ev := range t.events {
		if !t.apply(ctx, ev) {
			continue
		}
		if err := t.jobs.Update(ctx, t.job); err != nil {
			log.Printf("[progress] persist job %s: %v", t.job.ID, err)
		}
	}
}

func (t *progressTracker) apply(ctx context.Context, ev itemEvent) bool {
	if t.job.ProcessedCount+t.job.FailedCount >= t.job.TotalItems {
		log.Printf("[progress] job %s: event for %q exceeds total %d, ignored", t.job.ID, ev.item, t.job.TotalItems)
		return false
	}

	if ev.err == nil {
		t.job.ProcessedCount++
		t.succeeded[ev.action]++
		return true
	}

	t.job.FailedCount++
	t.failed[ev.action]++
	telemetry.AddBreadcrumb(ctx, "job."+t.job.ID, ev.action+" "+ev.item+": "+ev.err.Error())
	t.job.ErrorLog = append(t.job.ErrorLog, domain.JobError{
		Item:      ev.item,
		Action:    ev.action,
		Error:     ev.err.Error(),
		Timestamp: t.now(),
	})
	return true
}

func (t *progressTracker) failures(action string) int {
	return t.failed[action]
}

func (t *progressTracker) successes(action string) int {
	return t.succeeded[action]
}
