// Package aggregate derives reportable metrics from the event store. It is
// strictly read-only: the store is the single source of truth and every
// metric here can be recomputed at any time.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/honeysting/honeysting/internal/geo"
	"github.com/honeysting/honeysting/internal/models"
	"github.com/honeysting/honeysting/internal/store"
)

// Aggregator computes all-time and civil-day windowed metrics.
type Aggregator struct {
	store store.Store
	geo   geo.Resolver
	loc   *time.Location
	topN  int
}

// New creates an Aggregator. loc defines civil-day window boundaries
// (reports claim daily snapshots aligned to midnight in this zone); topN
// caps every breakdown.
func New(s store.Store, resolver geo.Resolver, loc *time.Location, topN int) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if resolver == nil {
		resolver = geo.Noop{}
	}
	return &Aggregator{store: s, geo: resolver, loc: loc, topN: topN}
}

// Day returns the [midnight, next midnight) window for the civil day
// containing t in the aggregator's timezone. Built from civil date
// components, so DST transition days are 23 or 25 hours long as they
// should be.
func (a *Aggregator) Day(t time.Time) store.Window {
	local := t.In(a.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, a.loc)
	return store.Window{Start: start, End: end}
}

// AllTime computes metrics over the full event store.
func (a *Aggregator) AllTime(ctx context.Context) (*models.Metrics, error) {
	return a.compute(ctx, store.Window{})
}

// ForWindow computes metrics over [start, end).
func (a *Aggregator) ForWindow(ctx context.Context, start, end time.Time) (*models.Metrics, error) {
	return a.compute(ctx, store.Window{Start: start, End: end})
}

// ForDay computes metrics for the civil day containing t.
func (a *Aggregator) ForDay(ctx context.Context, t time.Time) (*models.Metrics, error) {
	return a.compute(ctx, a.Day(t))
}

func (a *Aggregator) compute(ctx context.Context, w store.Window) (*models.Metrics, error) {
	m := &models.Metrics{}
	if !w.Zero() {
		m.WindowStart = w.Start
		m.WindowEnd = w.End
	}

	var err error
	if m.TotalEvents, err = a.store.CountEvents(ctx, w); err != nil {
		return nil, fmt.Errorf("aggregate totals: %w", err)
	}
	if m.DistinctIPs, err = a.store.CountDistinctIPs(ctx, w); err != nil {
		return nil, fmt.Errorf("aggregate distinct ips: %w", err)
	}
	if m.ByPort, err = a.store.CountByPort(ctx, w, a.topN); err != nil {
		return nil, fmt.Errorf("aggregate ports: %w", err)
	}
	if m.ByUsername, err = a.store.CountByUsername(ctx, w, a.topN); err != nil {
		return nil, fmt.Errorf("aggregate usernames: %w", err)
	}
	if m.ByPassword, err = a.store.CountByPassword(ctx, w, a.topN); err != nil {
		return nil, fmt.Errorf("aggregate passwords: %w", err)
	}
	if m.ByCountry, err = a.countries(ctx, w); err != nil {
		return nil, fmt.Errorf("aggregate countries: %w", err)
	}
	return m, nil
}

// countries folds per-IP counts through the geolocation resolver. Country is
// never stored on the event row; it is derived here so improved geolocation
// data retroactively improves every report.
func (a *Aggregator) countries(ctx context.Context, w store.Window) ([]models.BucketCount, error) {
	perIP, err := a.store.CountByIP(ctx, w, 0)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, len(perIP))
	for _, b := range perIP {
		totals[a.geo.Lookup(b.Key)] += b.Count
	}

	out := make([]models.BucketCount, 0, len(totals))
	for country, count := range totals {
		out = append(out, models.BucketCount{Key: country, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if a.topN > 0 && len(out) > a.topN {
		out = out[:a.topN]
	}
	return out, nil
}
