package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeysting_events_ingested_total",
			Help: "Total number of events durably stored",
		},
	)

	DuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeysting_duplicates_skipped_total",
			Help: "Total number of re-read events skipped by the store's dedup constraint",
		},
	)

	ParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeysting_parse_failures_total",
			Help: "Total number of log lines that failed to parse",
		},
	)

	BytesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeysting_log_bytes_consumed_total",
			Help: "Total bytes of log data consumed past the cursor",
		},
	)

	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeysting_runs_total",
			Help: "Total ingestion runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "honeysting_run_duration_seconds",
			Help:    "Duration of a full ingestion run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CursorOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "honeysting_cursor_offset_bytes",
			Help: "Current ingest cursor position in the source log",
		},
	)

	// Alerting metrics
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeysting_alerts_sent_total",
			Help: "Total alert notifications by channel and status",
		},
		[]string{"channel", "status"},
	)
)

// Run outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeNoData    = "no_data"
	OutcomeLocked    = "locked"
	OutcomeTruncated = "truncated"
	OutcomeError     = "error"
)
