package store

import (
	"context"
	"errors"
	"time"

	"github.com/honeysting/honeysting/internal/models"
)

// ErrWriteFailure marks durability-layer failures during Append. A run that
// hits one must not advance the cursor; retrying from the same offset is
// always safe because Append is idempotent.
var ErrWriteFailure = errors.New("event store write failure")

// Window bounds a query to [Start, End). A zero Window means all time.
type Window struct {
	Start time.Time
	End   time.Time
}

// Zero reports whether the window is unbounded.
func (w Window) Zero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Store is the append-only event store. Append silently skips events whose
// source offset already exists, so re-reading a byte range never duplicates
// rows. All query methods are read-only and safe to call concurrently.
type Store interface {
	// Append inserts the batch and returns how many rows were actually
	// inserted; the remainder were deduplicated by source offset.
	Append(ctx context.Context, batch []*models.Event) (int64, error)

	CountEvents(ctx context.Context, w Window) (int64, error)
	CountDistinctIPs(ctx context.Context, w Window) (int64, error)

	// CountByPort returns per-port event counts, descending, capped at
	// limit (0 = no cap).
	CountByPort(ctx context.Context, w Window, limit int) ([]models.BucketCount, error)

	// CountByUsername and CountByPassword exclude rows without the field
	// and the honeypot's sentinel values, so breakdowns reflect real
	// attacker input.
	CountByUsername(ctx context.Context, w Window, limit int) ([]models.BucketCount, error)
	CountByPassword(ctx context.Context, w Window, limit int) ([]models.BucketCount, error)

	// CountByIP returns per-source-IP event counts for country derivation.
	CountByIP(ctx context.Context, w Window, limit int) ([]models.BucketCount, error)

	Close() error
}
