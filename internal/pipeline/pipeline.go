// Package pipeline orchestrates one ingestion pass: read new log lines from
// the saved cursor, parse them, commit accepted events to the event store,
// then advance the cursor. Commit completes durably strictly before the
// cursor moves; a crash between the two steps is recovered on the next run
// by re-reading, which the store's idempotent insert makes harmless.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/honeysting/honeysting/internal/alert"
	"github.com/honeysting/honeysting/internal/cursor"
	"github.com/honeysting/honeysting/internal/geo"
	"github.com/honeysting/honeysting/internal/logging"
	"github.com/honeysting/honeysting/internal/logreader"
	"github.com/honeysting/honeysting/internal/metrics"
	"github.com/honeysting/honeysting/internal/models"
	"github.com/honeysting/honeysting/internal/parser"
	"github.com/honeysting/honeysting/internal/store"
)

// Options carries pipeline policy and collaborators.
type Options struct {
	LockPath string

	// ResetOnTruncate selects the log-rotation policy: reset the cursor
	// to 0 and re-ingest (accepting possible event loss) instead of
	// halting for an operator.
	ResetOnTruncate bool

	// Channels receive fire-and-forget notifications for alertable
	// events after the batch is committed.
	Channels []alert.Channel

	// Geo enriches notifications only; ingestion never depends on it.
	Geo geo.Resolver

	Logger *logging.Logger

	// AlertTimeout bounds each notification send.
	AlertTimeout time.Duration
}

// Pipeline is the single writer of the event store and the ingest cursor.
type Pipeline struct {
	reader *logreader.Reader
	parser *parser.Parser
	store  store.Store
	cursor *cursor.Store
	opts   Options
}

// New creates a Pipeline.
func New(r *logreader.Reader, p *parser.Parser, s store.Store, c *cursor.Store, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Geo == nil {
		opts.Geo = geo.Noop{}
	}
	if opts.AlertTimeout <= 0 {
		opts.AlertTimeout = 10 * time.Second
	}
	return &Pipeline{reader: r, parser: p, store: s, cursor: c, opts: opts}
}

// Run executes one ingestion pass. It returns cursor.ErrLockHeld when
// another run is active and logreader.ErrLogTruncated when the log shrank
// and the reset policy is off; both leave all state untouched. Any other
// error also leaves the cursor where it was, so the run can be retried.
func (p *Pipeline) Run(ctx context.Context) (*models.RunStats, error) {
	started := time.Now()
	stats := &models.RunStats{RunID: uuid.NewString()}
	log := p.opts.Logger.With(logging.RunID(stats.RunID))

	lock, err := cursor.Acquire(p.opts.LockPath)
	if err != nil {
		if errors.Is(err, cursor.ErrLockHeld) {
			metrics.RunsTotal.WithLabelValues(metrics.OutcomeLocked).Inc()
			log.Warn("another ingestion run is active, exiting early")
		}
		return stats, err
	}
	defer lock.Release()

	offset, err := p.cursor.Read()
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return stats, err
	}
	stats.StartOffset = offset
	stats.EndOffset = offset

	// READING
	lines, end, err := p.reader.ReadFrom(offset)
	if errors.Is(err, logreader.ErrLogTruncated) {
		if !p.opts.ResetOnTruncate {
			metrics.RunsTotal.WithLabelValues(metrics.OutcomeTruncated).Inc()
			log.Error("log shorter than cursor, halting for operator", logging.Offset(offset))
			return stats, err
		}
		log.Warn("log shorter than cursor, resetting to start of file", logging.Offset(offset))
		stats.StartOffset = 0
		lines, end, err = p.reader.ReadFrom(0)
	}
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return stats, fmt.Errorf("read log: %w", err)
	}
	stats.LinesRead = len(lines)

	// PARSING
	batch := make([]*models.Event, 0, len(lines))
	for _, line := range lines {
		ev, err := p.parser.Parse(line)
		switch {
		case err == nil:
			batch = append(batch, ev)
		case errors.Is(err, parser.ErrIgnoredRecord):
			stats.Ignored++
		default:
			// A bad line is counted and skipped; its byte range was
			// read, so it still advances the cursor and is never
			// retried.
			stats.ParseErrors++
			metrics.ParseFailures.Inc()
			log.Warn("skipping unparsable line", logging.Err(err))
		}
	}
	stats.Parsed = len(batch)

	// COMMITTING: the batch must be durable before the cursor moves.
	inserted, err := p.store.Append(ctx, batch)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return stats, fmt.Errorf("commit batch: %w", err)
	}
	stats.Inserted = inserted
	stats.Duplicates = int64(len(batch)) - inserted

	// ADVANCING_CURSOR
	if err := p.cursor.Write(end); err != nil {
		// Events are stored but the cursor is stale; the next run
		// re-reads the same range and the dedup constraint drops it.
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return stats, fmt.Errorf("advance cursor: %w", err)
	}
	stats.EndOffset = end

	metrics.EventsIngested.Add(float64(inserted))
	metrics.DuplicatesSkipped.Add(float64(stats.Duplicates))
	metrics.BytesConsumed.Add(float64(end - stats.StartOffset))
	metrics.CursorOffset.Set(float64(end))
	metrics.RunDuration.Observe(time.Since(started).Seconds())
	if stats.Progressed() {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	} else {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeNoData).Inc()
	}

	log.Info("ingestion run complete",
		"lines_read", stats.LinesRead,
		"parsed", stats.Parsed,
		"parse_errors", stats.ParseErrors,
		"ignored", stats.Ignored,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		logging.Offset(end),
	)

	// Alerts go out only after ingestion state is durably committed, and
	// only for events stored for the first time by this run.
	if inserted > 0 {
		p.notify(ctx, stats, batch)
	}
	return stats, nil
}

// notify sends fire-and-forget notifications for alertable events. Failures
// degrade to log lines; they never affect stored state.
func (p *Pipeline) notify(ctx context.Context, stats *models.RunStats, batch []*models.Event) {
	if len(p.opts.Channels) == 0 {
		return
	}
	for _, ev := range batch {
		if !alertable(ev) {
			continue
		}
		n := &alert.Notification{
			RunID:     stats.RunID,
			EventType: ev.Type,
			SrcIP:     ev.SrcIP,
			Country:   p.opts.Geo.Lookup(ev.SrcIP),
			DstPort:   ev.DstPort,
			Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
		}
		if ev.Username != nil {
			n.Username = *ev.Username
		}
		if ev.Password != nil {
			n.Password = *ev.Password
		}
		for _, ch := range p.opts.Channels {
			sendCtx, cancel := context.WithTimeout(ctx, p.opts.AlertTimeout)
			err := ch.Send(sendCtx, n)
			cancel()
			if err != nil {
				stats.AlertsFailed++
				metrics.AlertsSent.WithLabelValues(ch.Type(), "error").Inc()
				p.opts.Logger.Warn("alert delivery failed",
					"channel", ch.Type(), logging.Err(err))
				continue
			}
			stats.AlertsSent++
			metrics.AlertsSent.WithLabelValues(ch.Type(), "ok").Inc()
		}
	}
}

// alertable selects the events worth a real-time notification: credential
// captures and unusual activity, not every connection probe.
func alertable(ev *models.Event) bool {
	return ev.Type == models.EventTypeUnusualActivity || ev.HasCredentials()
}
