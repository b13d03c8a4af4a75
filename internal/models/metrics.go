package models

import "time"

// BucketCount is one row of a grouped breakdown, ordered by descending count.
type BucketCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Metrics is a derived, recomputable view over the event store. It is never
// persisted as a source of truth.
type Metrics struct {
	// Window bounds; zero for all-time metrics. Publish-time stamps live
	// in the renderer so metrics stay deterministic for a given store.
	WindowStart time.Time `json:"window_start,omitempty"`
	WindowEnd   time.Time `json:"window_end,omitempty"`

	TotalEvents int64 `json:"total_events"`
	DistinctIPs int64 `json:"distinct_ips"`

	ByPort     []BucketCount `json:"by_port"`
	ByCountry  []BucketCount `json:"by_country"`
	ByUsername []BucketCount `json:"by_username"`
	ByPassword []BucketCount `json:"by_password"`
}

// AllTime reports whether the metrics cover the full event store rather than
// a bounded window.
func (m *Metrics) AllTime() bool {
	return m.WindowStart.IsZero() && m.WindowEnd.IsZero()
}

// RunStats summarizes one ingestion pass. Progressed distinguishes "log had
// no new data" from a run that could not make progress at all.
type RunStats struct {
	RunID        string `json:"run_id"`
	LinesRead    int    `json:"lines_read"`
	Parsed       int    `json:"parsed"`
	ParseErrors  int    `json:"parse_errors"`
	Ignored      int    `json:"ignored"`
	Inserted     int64  `json:"inserted"`
	Duplicates   int64  `json:"duplicates"`
	StartOffset  int64  `json:"start_offset"`
	EndOffset    int64  `json:"end_offset"`
	AlertsSent   int    `json:"alerts_sent"`
	AlertsFailed int    `json:"alerts_failed"`
}

// Progressed reports whether the run consumed any new bytes from the log.
func (s *RunStats) Progressed() bool {
	return s.EndOffset > s.StartOffset
}
