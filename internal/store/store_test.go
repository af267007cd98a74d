package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func openTest(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"),
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ago(d time.Duration) int64 { return fixedNow.Add(-d).Unix() }

func TestOpenUnavailable(t *testing.T) {
	// A regular file where a parent directory is needed makes Open fail.
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(context.Background(), filepath.Join(blocker, "sub", "x.db"))
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMeta(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	v, err := s.GetMeta(ctx, "last_import")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMeta(ctx, "last_import", "1"))
	require.NoError(t, s.SetMeta(ctx, "last_import", "2"))
	v, err = s.GetMeta(ctx, "last_import")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestHistoryDuplicateInsertIsNoop(t *testing.T) {
	ctx := context.Background()
	h := openTest(t).History()

	e := HistoryEntry{Command: "git status", WorkingDir: "/repo", Timestamp: ago(time.Hour)}
	require.NoError(t, h.Insert(ctx, e))
	require.NoError(t, h.Insert(ctx, e))

	n, err := h.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHistoryInsertBatch(t *testing.T) {
	ctx := context.Background()
	h := openTest(t).History()
	code := 1

	inserted, err := h.InsertBatch(ctx, []HistoryEntry{
		{Command: "ls -la", Timestamp: 1},
		{Command: "ls -la", Timestamp: 1},
		{Command: "   ", Timestamp: 2},
		{Command: "make test", ExitCode: &code, Timestamp: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	n, err := h.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestHistorySearchNewestFirst(t *testing.T) {
	ctx := context.Background()
	h := openTest(t).History()

	require.NoError(t, h.Insert(ctx, HistoryEntry{Command: "docker ps", Timestamp: ago(48 * time.Hour)}))
	require.NoError(t, h.Insert(ctx, HistoryEntry{Command: "docker build .", Timestamp: ago(time.Hour)}))
	require.NoError(t, h.Insert(ctx, HistoryEntry{Command: "npm test", Timestamp: ago(time.Minute)}))

	got, err := h.Search(ctx, "docker", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"docker build .", "docker ps"}, got)
}

func TestHistorySearchPunctuationIsLiteral(t *testing.T) {
	ctx := context.Background()
	h := openTest(t).History()
	require.NoError(t, h.Insert(ctx, HistoryEntry{Command: `git commit -m "fix"`, Timestamp: 1}))

	for _, q := range []string{`"git`, `git AND OR`, `-m "fix" (`, `*`, `NEAR(`} {
		_, err := h.Search(ctx, q, 5)
		assert.NoError(t, err, q)
	}
	got, err := h.Search(ctx, `"fix"`, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestHistorySearchScoredGroupsAndRanks(t *testing.T) {
	ctx := context.Background()
	h := openTest(t).History()

	// Frequent but old.
	for i := range 30 {
		require.NoError(t, h.Insert(ctx, HistoryEntry{Command: "git pull", Timestamp: ago(20*24*time.Hour) + int64(i)}))
	}
	// Recent, used once; differs only in case and spacing from a second row.
	require.NoError(t, h.Insert(ctx, HistoryEntry{Command: "git push", Timestamp: ago(time.Minute)}))
	require.NoError(t, h.Insert(ctx, HistoryEntry{Command: " GIT PUSH", Timestamp: ago(2 * time.Minute)}))

	got, err := h.SearchScored(ctx, "git", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "git push", got[0].Command)
	assert.Equal(t, int64(2), got[0].Frequency)
	assert.Equal(t, "git pull", got[1].Command)
	assert.Equal(t, int64(30), got[1].Frequency)
	assert.Greater(t, got[0].CombinedScore, got[1].CombinedScore)
	for _, cs := range got {
		assert.InDelta(t, 0.6*cs.RecencyScore+0.4*cs.FrequencyScore, cs.CombinedScore, 1e-9)
	}
}

func TestRecencyScoreMonotonic(t *testing.T) {
	ages := []time.Duration{0, time.Minute, time.Hour, 12 * time.Hour, 24 * time.Hour,
		48 * time.Hour, 10 * 24 * time.Hour, 31 * 24 * time.Hour, 365 * 24 * time.Hour}
	prev := 2.0
	for _, a := range ages {
		s := RecencyScore(a)
		assert.LessOrEqual(t, s, prev, a.String())
		assert.GreaterOrEqual(t, s, 0.1)
		assert.LessOrEqual(t, s, 1.0)
		prev = s
	}
	assert.InDelta(t, 1.0, RecencyScore(0), 1e-9)
	assert.InDelta(t, 0.5, RecencyScore(24*time.Hour), 1e-9)
	assert.InDelta(t, 0.1, RecencyScore(31*24*time.Hour), 1e-9)
	assert.InDelta(t, 1.0, RecencyScore(-time.Hour), 1e-9)
}

func TestFrequencyScoreMonotonic(t *testing.T) {
	prev := 0.0
	for _, f := range []int64{0, 1, 5, 10, 50, 100, 1000} {
		s := FrequencyScore(f)
		assert.GreaterOrEqual(t, s, prev)
		assert.GreaterOrEqual(t, s, 0.1)
		assert.LessOrEqual(t, s, 1.0)
		prev = s
	}
	assert.InDelta(t, 0.5, FrequencyScore(50), 1e-9)
	assert.InDelta(t, 1.0, FrequencyScore(1000), 1e-9)
}
