package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cloo-solutions/examvault/internal/service"
)

type Reaper interface {
	Reap(ctx context.Context, retentionDays int) (int, error)
}

type Syncer interface {
	RunSync(ctx context.Context, in service.RunInput) (string, error)
}

// RetentionProcessor purges soft-deleted documents older than the
// configured retention window.
type RetentionProcessor struct {
	reaper        Reaper
	retentionDays int
}

func NewRetentionProcessor(reaper Reaper, retentionDays int) *RetentionProcessor {
	return &RetentionProcessor{reaper: reaper, retentionDays: retentionDays}
}

func (p *RetentionProcessor) ProcessJobs(ctx context.Context) error {
	n, err := p.reaper.Reap(ctx, p.retentionDays)
	if err != nil {
		return fmt.Errorf("reap: %w", err)
	}
	if n > 0 {
		log.Printf("[retention] purged %d documents", n)
	}
	return nil
}

// SyncProcessor runs a synchronous sync of one remote root. A round that
// starts while the previous one is still running is skipped.
type SyncProcessor struct {
	syncer Syncer
	input  service.RunInput
	mu     sync.Mutex
}

func NewSyncProcessor(syncer Syncer, input service.RunInput) *SyncProcessor {
	return &SyncProcessor{syncer: syncer, input: input}
}

func (p *SyncProcessor) ProcessJobs(ctx context.Context) error {
	if !p.mu.TryLock() {
		log.Printf("[sync] previous scheduled sync of %s still running, skipping", p.input.RootID)
		return nil
	}
	defer p.mu.Unlock()

	jobID, err := p.syncer.RunSync(ctx, p.input)
	if err != nil {
		return fmt.Errorf("sync %s (job %s): %w", p.input.RootID, jobID, err)
	}
	log.Printf("[sync] scheduled sync of %s finished as job %s", p.input.RootID, jobID)
	return nil
}
