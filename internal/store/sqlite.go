package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/honeysting/honeysting/internal/models"
)

// Fixed-width UTC layout so lexicographic order matches chronological order
// for the timestamp index.
const tsLayout = "2006-01-02 15:04:05.000000"

// Sentinel credential values OpenCanary emits for "nothing captured";
// excluded from breakdowns so they do not drown out real attacker input.
const passwordNotInList = "<Password was not in the common list>"

const schema = `
CREATE TABLE IF NOT EXISTS events (
	source_offset INTEGER PRIMARY KEY,
	ts            TEXT    NOT NULL,
	event_type    TEXT    NOT NULL,
	src_ip        TEXT    NOT NULL,
	dst_port      INTEGER NOT NULL,
	username      TEXT,
	password      TEXT,
	raw_payload   TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events (ts);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// bootstraps the schema. The source_offset primary key is what makes
// Append idempotent; deduplication lives in the store, not in callers.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}

	// A single writer at a time, enforced upstream by the ingest lock.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure event store: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap event store schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append inserts the batch in one transaction, skipping rows whose source
// offset already exists. The transaction commits before Append returns, so
// a successful return means the batch is durable.
func (s *SQLiteStore) Append(ctx context.Context, batch []*models.Event) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", ErrWriteFailure, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO events
			(source_offset, ts, event_type, src_ip, dst_port, username, password, raw_payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare: %v", ErrWriteFailure, err)
	}
	defer stmt.Close()

	var inserted int64
	for _, ev := range batch {
		res, err := stmt.ExecContext(ctx,
			ev.SourceOffset,
			ev.Timestamp.UTC().Format(tsLayout),
			string(ev.Type),
			ev.SrcIP,
			ev.DstPort,
			ev.Username,
			ev.Password,
			ev.RawPayload,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: insert offset %d: %v", ErrWriteFailure, ev.SourceOffset, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%w: rows affected: %v", ErrWriteFailure, err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", ErrWriteFailure, err)
	}
	return inserted, nil
}

// CountEvents returns the number of events in the window.
func (s *SQLiteStore) CountEvents(ctx context.Context, w Window) (int64, error) {
	where, args := windowClause(w)
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// CountDistinctIPs returns the number of distinct source IPs in the window.
func (s *SQLiteStore) CountDistinctIPs(ctx context.Context, w Window) (int64, error) {
	where, args := windowClause(w)
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT src_ip) FROM events"+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count distinct ips: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) CountByPort(ctx context.Context, w Window, limit int) ([]models.BucketCount, error) {
	return s.grouped(ctx, "CAST(dst_port AS TEXT)", "", w, limit)
}

func (s *SQLiteStore) CountByUsername(ctx context.Context, w Window, limit int) ([]models.BucketCount, error) {
	filter := "username IS NOT NULL AND TRIM(username) != '' AND LOWER(TRIM(username)) != 'none'"
	return s.grouped(ctx, "TRIM(username)", filter, w, limit)
}

func (s *SQLiteStore) CountByPassword(ctx context.Context, w Window, limit int) ([]models.BucketCount, error) {
	filter := fmt.Sprintf("password IS NOT NULL AND TRIM(password) != '' AND password != '%s'", passwordNotInList)
	return s.grouped(ctx, "TRIM(password)", filter, w, limit)
}

func (s *SQLiteStore) CountByIP(ctx context.Context, w Window, limit int) ([]models.BucketCount, error) {
	return s.grouped(ctx, "src_ip", "src_ip != ''", w, limit)
}

// grouped runs a GROUP BY count over the window, descending, key ties
// broken alphabetically so results are deterministic across runs.
func (s *SQLiteStore) grouped(ctx context.Context, expr, filter string, w Window, limit int) ([]models.BucketCount, error) {
	where, args := windowClause(w)
	if filter != "" {
		if where == "" {
			where = " WHERE " + filter
		} else {
			where += " AND " + filter
		}
	}

	query := fmt.Sprintf(
		"SELECT %s AS k, COUNT(*) AS n FROM events%s GROUP BY k ORDER BY n DESC, k ASC",
		expr, where,
	)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("grouped count: %w", err)
	}
	defer rows.Close()

	var out []models.BucketCount
	for rows.Next() {
		var b models.BucketCount
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("scan grouped count: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grouped count rows: %w", err)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// windowClause translates a Window into a WHERE fragment over the indexed
// timestamp column.
func windowClause(w Window) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !w.Start.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, w.Start.UTC().Format(tsLayout))
	}
	if !w.End.IsZero() {
		conds = append(conds, "ts < ?")
		args = append(args, w.End.UTC().Format(tsLayout))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
