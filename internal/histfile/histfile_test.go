package histfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindsight/internal/store"
)

const base int64 = 1_700_000_100

func TestParseLog(t *testing.T) {
	in := "1700000000\tgit status\n\n1700000005\t  npm test  \nno tab here\n1700000009\t\nbogus\tls -la\n"

	got, stats, err := Parse(strings.NewReader(in), FormatLog, "/work", base)
	require.NoError(t, err)

	want := []store.HistoryEntry{
		{Command: "git status", WorkingDir: "/work", Timestamp: 1700000000},
		{Command: "npm test", WorkingDir: "/work", Timestamp: 1700000005},
		{Command: "ls -la", WorkingDir: "/work", Timestamp: base + 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Stats{Lines: 5, Parsed: 3, Skipped: 2, Base: base}, stats)
}

func TestParseBash(t *testing.T) {
	in := "#1700000000\nmake build\nls\n#not-a-time\n#1700000050\ncd /tmp\n"

	got, stats, err := Parse(strings.NewReader(in), FormatBash, "", base)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "make build", got[0].Command)
	assert.Equal(t, int64(1700000000), got[0].Timestamp)
	assert.Equal(t, "ls", got[1].Command)
	assert.Equal(t, base+2, got[1].Timestamp)
	assert.Equal(t, "#not-a-time", got[2].Command)
	assert.Equal(t, "cd /tmp", got[3].Command)
	assert.Equal(t, int64(1700000050), got[3].Timestamp)
	assert.Equal(t, 4, stats.Parsed)
}

func TestParseZshExtended(t *testing.T) {
	in := ": 1700000000:0;git commit -m wip\n: 1700000010:3;docker build \\\n  -t app .\nplain command\n: broken\n: x:0;ls\n"

	got, stats, err := Parse(strings.NewReader(in), FormatZsh, "", base)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "git commit -m wip", got[0].Command)
	assert.Equal(t, int64(1700000000), got[0].Timestamp)
	assert.Equal(t, "docker build \n  -t app .", got[1].Command)
	assert.Equal(t, int64(1700000010), got[1].Timestamp)
	assert.Equal(t, "plain command", got[2].Command)
	assert.Equal(t, base+3, got[2].Timestamp)
	assert.Equal(t, Stats{Lines: 5, Parsed: 3, Skipped: 2, Base: base}, stats)
}

func TestParseGrownFileKeepsTimestamps(t *testing.T) {
	first, _, err := Parse(strings.NewReader("git status\nmake build\n"), FormatBash, "", base)
	require.NoError(t, err)
	grown, _, err := Parse(strings.NewReader("git status\nmake build\nls -la\n"), FormatBash, "", base)
	require.NoError(t, err)

	require.Len(t, grown, 3)
	if diff := cmp.Diff(first, grown[:2]); diff != "" {
		t.Errorf("earlier lines changed (-first +grown):\n%s", diff)
	}
	assert.Equal(t, base+3, grown[2].Timestamp)
}

func TestReimportGrownFileInsertsOnlyNewLines(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	path := filepath.Join(t.TempDir(), ".bash_history")
	require.NoError(t, os.WriteFile(path, []byte("git status\nmake build\n"), 0o644))
	mtime := time.Unix(1_000_000, 0)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	entries, stats, err := ReadFile(path, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000-2), stats.Base)
	n, err := st.History().InsertBatch(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The shell appends a line; the file grows and its mtime moves on.
	require.NoError(t, os.WriteFile(path, []byte("git status\nmake build\nls -la\n"), 0o644))
	later := time.Unix(1_000_060, 0)
	require.NoError(t, os.Chtimes(path, later, later))

	entries, _, err = ReadFile(path, "", "", stats.Base)
	require.NoError(t, err)
	n, err = st.History().InsertBatch(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := st.History().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	scored, err := st.History().SearchScored(ctx, "status", 10)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, int64(1), scored[0].Frequency)
}

func TestDetectAndParseFormat(t *testing.T) {
	assert.Equal(t, FormatZsh, DetectFormat("/home/u/.zsh_history"))
	assert.Equal(t, FormatBash, DetectFormat("/home/u/.bash_history"))
	assert.Equal(t, FormatLog, DetectFormat("/home/u/.hindsight/commands.log"))

	f, err := ParseFormat("ZSH")
	require.NoError(t, err)
	assert.Equal(t, FormatZsh, f)
	_, err = ParseFormat("fish")
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".bash_history")
	require.NoError(t, os.WriteFile(path, []byte("echo hi\n"), 0o644))

	got, stats, err := ReadFile(path, "", "/repo", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "echo hi", got[0].Command)
	assert.Equal(t, "/repo", got[0].WorkingDir)
	assert.Equal(t, 1, stats.Parsed)

	_, _, err = ReadFile(filepath.Join(t.TempDir(), "missing"), FormatLog, "", 0)
	assert.Error(t, err)
}
