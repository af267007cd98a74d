package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearModelEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "HINDSIGHT_MODEL_PROVIDER", "HINDSIGHT_DB", "HINDSIGHT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	clearModelEnv(t)
	home := t.TempDir()
	t.Setenv("HINDSIGHT_HOME", home)

	cfg, err := Load(filepath.Join(home, "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, 10, cfg.Recall.Limit)
	assert.Equal(t, 3, cfg.Fix.CommunityLimit)
	assert.Equal(t, ProviderNone, cfg.Model.Provider)
	assert.Equal(t, 20*time.Second, cfg.ModelTimeout())
	assert.Equal(t, filepath.Join(home, "hindsight.db"), cfg.Paths().DB())
}

func TestLoadYAML(t *testing.T) {
	clearModelEnv(t)
	home := t.TempDir()
	t.Setenv("HINDSIGHT_HOME", home)

	path := filepath.Join(home, "config.yaml")
	data := `
db_path: /tmp/custom.db
recall:
  limit: 5
model:
  provider: ollama
  name: qwen3:8b
  base_url: http://localhost:11434
  timeout: 45s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.Paths().DB())
	assert.Equal(t, 5, cfg.Recall.Limit)
	assert.Equal(t, ProviderOllama, cfg.Model.Provider)
	assert.Equal(t, 45*time.Second, cfg.ModelTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestAutoProviderFromEnv(t *testing.T) {
	clearModelEnv(t)
	t.Setenv("HINDSIGHT_HOME", t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Model.Provider)
	assert.Equal(t, "g-key", cfg.Model.APIKey)
}

func TestExplicitProviderIgnoresOtherKeys(t *testing.T) {
	clearModelEnv(t)
	t.Setenv("HINDSIGHT_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("HINDSIGHT_MODEL_PROVIDER", "gemini")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Model.Provider)
	assert.Empty(t, cfg.Model.APIKey)
}

func TestPathsEnsure(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested", "home")
	p := NewPaths(home)
	require.NoError(t, p.Ensure())

	info, err := os.Stat(home)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(home, "commands.log"), p.CommandLog())
}
