package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func conf(v float64) *float64 { return &v }

func TestApplyNamedCapture(t *testing.T) {
	e := Compile([]Rule{{
		Name:       "node",
		MatchRegex: `cannot find module '(?P<mod>.+)'`,
		FixCommand: "npm install {{mod}}",
	}})

	m, ok := e.Apply("Error: cannot find module 'express'")
	require.True(t, ok)
	assert.Equal(t, "npm install express", m.Command)
	assert.Equal(t, DefaultConfidence, m.Confidence)
	assert.Equal(t, "node", m.Rule)
}

func TestApplyPositionalCaptures(t *testing.T) {
	e := Compile([]Rule{{
		Name:        "port",
		MatchRegex:  `listen on (\w+):(\d+)`,
		FixCommand:  "lsof -i $1:$2",
		Confidence:  conf(0.8),
		Explanation: "port busy",
	}})

	m, ok := e.Apply("cannot listen on localhost:8080")
	require.True(t, ok)
	assert.Equal(t, "lsof -i localhost:8080", m.Command)
	assert.Equal(t, 0.8, m.Confidence)
	assert.Equal(t, "port busy", m.Explanation)
}

func TestApplyNamedBeforePositional(t *testing.T) {
	// The named group is also group 1; both placeholders render the same value.
	e := Compile([]Rule{{
		Name:       "both",
		MatchRegex: `branch (?P<b>\S+) and (\S+)`,
		FixCommand: "git checkout {{b}} && git merge $2 && echo $1",
	}})

	m, ok := e.Apply("branch main and feature")
	require.True(t, ok)
	assert.Equal(t, "git checkout main && git merge feature && echo main", m.Command)
}

func TestApplyOptionalGroupLeavesPlaceholder(t *testing.T) {
	e := Compile([]Rule{{
		Name:       "opt",
		MatchRegex: `fail(?: code (\d+))?`,
		FixCommand: "retry $1",
	}})

	m, ok := e.Apply("fail")
	require.True(t, ok)
	assert.Equal(t, "retry $1", m.Command)
}

func TestApplyFirstMatchWins(t *testing.T) {
	e := Compile([]Rule{
		{Name: "first", MatchRegex: "denied", FixCommand: "sudo !!"},
		{Name: "second", MatchRegex: "permission denied", FixCommand: "chmod +x"},
	})

	m, ok := e.Apply("permission denied")
	require.True(t, ok)
	assert.Equal(t, "first", m.Rule)
}

func TestMalformedPatternSkipped(t *testing.T) {
	e := Compile([]Rule{
		{Name: "broken", MatchRegex: "([unclosed", FixCommand: "x"},
		{Name: "ok", MatchRegex: "unclosed", FixCommand: "fixed"},
	})

	assert.Equal(t, 1, e.Len())
	require.Len(t, e.Skipped(), 1)
	var rerr *RuleError
	require.True(t, errors.As(e.Skipped()[0], &rerr))
	assert.Equal(t, "broken", rerr.Name)

	m, ok := e.Apply("[unclosed bracket")
	require.True(t, ok)
	assert.Equal(t, "fixed", m.Command)
}

func TestApplyNoMatch(t *testing.T) {
	e := Compile([]Rule{{Name: "a", MatchRegex: "foo", FixCommand: "bar"}})
	_, ok := e.Apply("nothing relevant")
	assert.False(t, ok)
}

func TestParseListAndMapping(t *testing.T) {
	mapping := []byte("rules:\n  - name: a\n    match_regex: x\n    fix_command: y\n    confidence: 0.9\n")
	list := []byte("- name: b\n  match_regex: z\n  fix_command: w\n")

	got, err := Parse(mapping)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
	require.NotNil(t, got[0].Confidence)
	assert.Equal(t, 0.9, *got[0].Confidence)

	got, err = Parse(list)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Name)
	assert.Nil(t, got[0].Confidence)
}

func TestDefaultRules(t *testing.T) {
	e := Default()
	require.Empty(t, e.Skipped())
	require.Greater(t, e.Len(), 5)

	tests := []struct {
		errText string
		want    string
	}{
		{"Error: Cannot find module 'express'", "npm install express"},
		{"ModuleNotFoundError: No module named 'numpy'", "pip install numpy"},
		{"fatal: The current branch feat/login has no upstream branch.", "git push --set-upstream origin feat/login"},
		{"Error: listen EADDRINUSE: address already in use :::3000", "lsof -ti :3000 | xargs kill"},
		{"zsh: ./deploy.sh: Permission denied", "chmod +x ./deploy.sh"},
	}
	for _, tt := range tests {
		m, ok := e.Apply(tt.errText)
		require.True(t, ok, tt.errText)
		assert.Equal(t, tt.want, m.Command, tt.errText)
	}
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	e, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Default().Len(), e.Len())
}

func TestLoadFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [unterminated"), 0o644))

	_, err := LoadFile(path, zap.NewNop())
	require.Error(t, err)
}

func TestLiveReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - name: a\n    match_regex: alpha\n    fix_command: one\n"), 0o644))

	live, err := NewLive(path, zap.NewNop())
	require.NoError(t, err)
	m, ok := live.Apply("alpha")
	require.True(t, ok)
	assert.Equal(t, "one", m.Command)

	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - name: a\n    match_regex: alpha\n    fix_command: two\n"), 0o644))
	require.NoError(t, live.Reload())
	m, _ = live.Apply("alpha")
	assert.Equal(t, "two", m.Command)

	require.NoError(t, os.WriteFile(path, []byte("rules: [broken"), 0o644))
	require.Error(t, live.Reload())
	m, _ = live.Apply("alpha")
	assert.Equal(t, "two", m.Command)
}

func TestLiveWatchPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - name: a\n    match_regex: alpha\n    fix_command: one\n"), 0o644))

	live, err := NewLive(path, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- live.Watch(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - name: a\n    match_regex: alpha\n    fix_command: watched\n"), 0o644))

	assert.Eventually(t, func() bool {
		m, _ := live.Apply("alpha")
		return m.Command == "watched"
	}, 3*time.Second, 25*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
