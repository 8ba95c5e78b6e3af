package jobs

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/examvault/internal/telemetry"
)

// JobProcessor runs one round of periodic work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker calls its processor on a fixed interval until stopped.
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	runOnStart   bool
	stopChan     chan struct{}
	doneChan     chan struct{}
}

type WorkerOption func(*Worker)

// WithRunOnStart makes the worker run one round before the first tick.
func WithRunOnStart() WorkerOption {
	return func(w *Worker) { w.runOnStart = true }
}

func NewWorker(name string, processor JobProcessor, pollInterval time.Duration, opts ...WorkerOption) *Worker {
	w := &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start blocks running the polling loop until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("[%s] worker started with interval %v", w.name, w.pollInterval)

	if w.runOnStart {
		w.run(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] worker stopped: context cancelled", w.name)
			return
		case <-w.stopChan:
			log.Printf("[%s] worker stopped: stop signal received", w.name)
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	ctx, span := telemetry.StartTransaction(ctx, "jobs."+w.name, "worker")
	defer span.End()

	if err := w.processor.ProcessJobs(ctx); err != nil {
		span.SetError(err)
		log.Printf("[%s] round failed: %v", w.name, err)
	}
}

// Stop signals the loop and waits for it to exit. Start must have been called.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Printf("[%s] worker shutdown complete", w.name)
}
