package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeysting/honeysting/internal/aggregate"
	"github.com/honeysting/honeysting/internal/alert"
	"github.com/honeysting/honeysting/internal/cursor"
	"github.com/honeysting/honeysting/internal/logreader"
	"github.com/honeysting/honeysting/internal/models"
	"github.com/honeysting/honeysting/internal/parser"
	"github.com/honeysting/honeysting/internal/pipeline"
	"github.com/honeysting/honeysting/internal/store"
)

// recordingChannel captures notifications instead of delivering them.
type recordingChannel struct {
	sent []*alert.Notification
	fail bool
}

func (c *recordingChannel) Type() string { return "recording" }

func (c *recordingChannel) Send(ctx context.Context, n *alert.Notification) error {
	if c.fail {
		return errors.New("sink unavailable")
	}
	c.sent = append(c.sent, n)
	return nil
}

type env struct {
	logPath    string
	cursorPath string
	lockPath   string
	store      *store.SQLiteStore
	cursor     *cursor.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(dir, "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return &env{
		logPath:    filepath.Join(dir, "opencanary.log"),
		cursorPath: filepath.Join(dir, "ingest.pos"),
		lockPath:   filepath.Join(dir, "ingest.lock"),
		store:      s,
		cursor:     cursor.NewStore(filepath.Join(dir, "ingest.pos")),
	}
}

func (e *env) newPipeline(opts pipeline.Options) *pipeline.Pipeline {
	opts.LockPath = e.lockPath
	return pipeline.New(
		logreader.New(e.logPath),
		parser.New(time.UTC),
		e.store,
		e.cursor,
		opts,
	)
}

func (e *env) appendLog(t *testing.T, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(e.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	for _, line := range lines {
		_, err := f.WriteString(line + "\n")
		require.NoError(t, err)
	}
}

func sshLine(ip, user, pass string) string {
	return fmt.Sprintf(`{"utc_time": "2026-08-01 03:15:09.000000", "logtype": 4002, "src_host": %q,`+
		` "dst_port": 22, "logdata": {"USERNAME": %q, "PASSWORD": %q}}`, ip, user, pass)
}

// TestRun_WorkedExample is the canonical three-line scenario: two SSH login
// attempts and one malformed line.
func TestRun_WorkedExample(t *testing.T) {
	e := newEnv(t)
	lines := []string{
		sshLine("1.2.3.4", "root", "toor"),
		sshLine("1.2.3.4", "admin", "1234"),
		"NOT JSON AT ALL",
	}
	e.appendLog(t, lines...)

	stats, err := e.newPipeline(pipeline.Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.LinesRead)
	assert.Equal(t, 2, stats.Parsed)
	assert.Equal(t, 1, stats.ParseErrors)
	assert.Equal(t, int64(2), stats.Inserted)
	assert.Equal(t, int64(0), stats.Duplicates)

	var total int64
	for _, l := range lines {
		total += int64(len(l)) + 1
	}
	assert.Equal(t, total, stats.EndOffset, "cursor covers all three lines, malformed included")

	offset, err := e.cursor.Read()
	require.NoError(t, err)
	assert.Equal(t, total, offset)

	agg := aggregate.New(e.store, nil, time.UTC, 10)
	m, err := agg.AllTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.TotalEvents)
	assert.Equal(t, int64(1), m.DistinctIPs)
	assert.Equal(t, []models.BucketCount{{Key: "22", Count: 2}}, m.ByPort)
	assert.Equal(t, []models.BucketCount{{Key: "admin", Count: 1}, {Key: "root", Count: 1}}, m.ByUsername)
}

// TestRun_Idempotent reruns with no new data: same store content, same
// cursor, zero inserts.
func TestRun_Idempotent(t *testing.T) {
	e := newEnv(t)
	e.appendLog(t, sshLine("1.2.3.4", "root", "toor"))

	p := e.newPipeline(pipeline.Options{})
	first, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Inserted)

	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Inserted)
	assert.Equal(t, 0, second.LinesRead)
	assert.Equal(t, first.EndOffset, second.EndOffset)
	assert.False(t, second.Progressed())

	total, err := e.store.CountEvents(context.Background(), store.Window{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

// TestRun_SplitAcrossRuns appends in several chunks with a run after each;
// the final store holds exactly one row per valid line.
func TestRun_SplitAcrossRuns(t *testing.T) {
	e := newEnv(t)
	p := e.newPipeline(pipeline.Options{})
	ctx := context.Background()

	var appended int
	chunks := [][]string{
		{sshLine("1.1.1.1", "root", "a")},
		{sshLine("2.2.2.2", "root", "b"), sshLine("3.3.3.3", "guest", "c")},
		{},
		{sshLine("4.4.4.4", "admin", "d")},
	}
	for _, chunk := range chunks {
		e.appendLog(t, chunk...)
		appended += len(chunk)
		_, err := p.Run(ctx)
		require.NoError(t, err)
	}

	total, err := e.store.CountEvents(ctx, store.Window{})
	require.NoError(t, err)
	assert.Equal(t, int64(appended), total)
}

// TestRun_CrashBeforeCursorAdvance simulates a crash between COMMITTING and
// ADVANCING_CURSOR by rolling the cursor back after a successful run. The
// next run re-reads the committed range harmlessly.
func TestRun_CrashBeforeCursorAdvance(t *testing.T) {
	e := newEnv(t)
	e.appendLog(t, sshLine("1.2.3.4", "root", "toor"), sshLine("5.6.7.8", "admin", "1234"))

	p := e.newPipeline(pipeline.Options{})
	ctx := context.Background()

	first, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), first.Inserted)

	// As if the process died after commit but before the cursor moved.
	require.NoError(t, e.cursor.Write(first.StartOffset))

	second, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Inserted)
	assert.Equal(t, int64(2), second.Duplicates)
	assert.Equal(t, first.EndOffset, second.EndOffset)

	total, err := e.store.CountEvents(ctx, store.Window{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "re-read must not duplicate rows")

	offset, err := e.cursor.Read()
	require.NoError(t, err)
	assert.Equal(t, first.EndOffset, offset)
}

func TestRun_LockContention(t *testing.T) {
	e := newEnv(t)
	e.appendLog(t, sshLine("1.2.3.4", "root", "toor"))

	held, err := cursor.Acquire(e.lockPath)
	require.NoError(t, err)
	defer held.Release()

	_, err = e.newPipeline(pipeline.Options{}).Run(context.Background())
	require.ErrorIs(t, err, cursor.ErrLockHeld)

	// The losing run touched nothing.
	offset, err := e.cursor.Read()
	require.NoError(t, err)
	assert.Equal(t, int64(0), offset)

	total, err := e.store.CountEvents(context.Background(), store.Window{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRun_TruncatedHaltsByDefault(t *testing.T) {
	e := newEnv(t)
	e.appendLog(t, sshLine("1.2.3.4", "root", "toor"))

	p := e.newPipeline(pipeline.Options{})
	ctx := context.Background()

	first, err := p.Run(ctx)
	require.NoError(t, err)

	// Rotate: replace the log with something shorter.
	require.NoError(t, os.WriteFile(e.logPath, []byte("x\n"), 0o644))

	_, err = p.Run(ctx)
	require.ErrorIs(t, err, logreader.ErrLogTruncated)

	offset, err := e.cursor.Read()
	require.NoError(t, err)
	assert.Equal(t, first.EndOffset, offset, "halting run must not move the cursor")
}

func TestRun_TruncatedResetPolicy(t *testing.T) {
	e := newEnv(t)
	e.appendLog(t, sshLine("1.2.3.4", "root", "toor"), sshLine("1.2.3.4", "root", "toor2"))

	ctx := context.Background()
	_, err := e.newPipeline(pipeline.Options{}).Run(ctx)
	require.NoError(t, err)

	// Rotate to a shorter log with one fresh event.
	require.NoError(t, os.Remove(e.logPath))
	e.appendLog(t, sshLine("9.9.9.9", "guest", "guest"))

	stats, err := e.newPipeline(pipeline.Options{ResetOnTruncate: true}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.StartOffset)
	assert.Equal(t, 1, stats.LinesRead)

	offset, err := e.cursor.Read()
	require.NoError(t, err)
	assert.Equal(t, stats.EndOffset, offset)
}

func TestRun_AlertsAfterCommit(t *testing.T) {
	e := newEnv(t)
	e.appendLog(t,
		sshLine("1.2.3.4", "root", "toor"),
		`{"utc_time": "2026-08-01 03:00:00.000000", "logtype": 5001, "src_host": "7.7.7.7", "dst_port": 443}`,
	)

	ch := &recordingChannel{}
	stats, err := e.newPipeline(pipeline.Options{Channels: []alert.Channel{ch}}).Run(context.Background())
	require.NoError(t, err)

	// Only the credential capture is alertable; the bare connection
	// probe is not.
	require.Len(t, ch.sent, 1)
	assert.Equal(t, "1.2.3.4", ch.sent[0].SrcIP)
	assert.Equal(t, "root", ch.sent[0].Username)
	assert.Equal(t, stats.RunID, ch.sent[0].RunID)
	assert.Equal(t, 1, stats.AlertsSent)
}

func TestRun_AlertFailureDoesNotFailRun(t *testing.T) {
	e := newEnv(t)
	e.appendLog(t, sshLine("1.2.3.4", "root", "toor"))

	ch := &recordingChannel{fail: true}
	stats, err := e.newPipeline(pipeline.Options{Channels: []alert.Channel{ch}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Inserted)
	assert.Equal(t, 1, stats.AlertsFailed)

	offset, err := e.cursor.Read()
	require.NoError(t, err)
	assert.Equal(t, stats.EndOffset, offset)
}

func TestRun_NoDuplicateAlertsWhenNothingNew(t *testing.T) {
	e := newEnv(t)
	e.appendLog(t, sshLine("1.2.3.4", "root", "toor"))

	ch := &recordingChannel{}
	p := e.newPipeline(pipeline.Options{Channels: []alert.Channel{ch}})
	ctx := context.Background()

	_, err := p.Run(ctx)
	require.NoError(t, err)
	_, err = p.Run(ctx)
	require.NoError(t, err)

	assert.Len(t, ch.sent, 1, "a rerun with no new data must not re-alert")
}
