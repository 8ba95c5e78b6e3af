package service

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/telemetry"
)

// Reap permanently removes documents soft-deleted more than retentionDays
// ago, together with their chunks, and returns how many were removed.
// Running it again with nothing eligible returns 0.
func (s *IngestionService) Reap(ctx context.Context, retentionDays int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Reap", telemetry.SpanAttributes{
		Operation: "reap",
	})
	defer span.End()

	if retentionDays < 0 {
		return 0, domain.ErrInvalidRetention
	}

	cutoff := s.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	purged, err := s.docs.PurgeDeleted(ctx, cutoff)
	if err != nil {
		span.SetError(err)
		return 0, domain.ErrStorageFailure.Wrap(err)
	}

	if s.blobs != nil {
		for _, d := range purged {
			if d.FileKey == "" {
				continue
			}
			if err := s.blobs.Remove(ctx, d.FileKey); err != nil {
				log.Printf("[reaper] remove blob %s of document %s: %v", d.FileKey, d.ID, err)
			}
		}
	}

	if len(purged) > 0 {
		log.Printf("[reaper] removed %d documents deleted before %s", len(purged), cutoff.Format(time.RFC3339))
	}
	return len(purged), nil
}
