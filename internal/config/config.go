// Package config holds the explicit configuration value passed into the
// resolver and the command layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all hindsight configuration.
type Config struct {
	// Home is the state directory (default ~/.hindsight).
	Home string `yaml:"home"`

	DBPath    string `yaml:"db_path"`
	RulesPath string `yaml:"rules_path"`
	SeedPath  string `yaml:"seed_path"`

	Recall RecallConfig `yaml:"recall"`
	Fix    FixConfig    `yaml:"fix"`
	Model  ModelConfig  `yaml:"model"`
	Log    LogConfig    `yaml:"log"`
}

// RecallConfig configures the recall pipeline.
type RecallConfig struct {
	Limit int `yaml:"limit"`
}

// FixConfig configures the fix pipeline.
type FixConfig struct {
	// CommunityLimit is how many knowledge base candidates are fetched.
	CommunityLimit int `yaml:"community_limit"`
}

// ModelConfig configures the optional remote model.
type ModelConfig struct {
	Provider string `yaml:"provider"` // anthropic, gemini, ollama, none; empty = auto
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Timeout  string `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// Provider names.
const (
	ProviderAuto      = ""
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

const defaultModelTimeout = 20 * time.Second

// DefaultHome returns ~/.hindsight, or HINDSIGHT_HOME when set.
func DefaultHome() string {
	if h := os.Getenv("HINDSIGHT_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".hindsight")
}

// DefaultConfig returns the default configuration rooted at home.
func DefaultConfig(home string) *Config {
	return &Config{
		Home:   home,
		Recall: RecallConfig{Limit: 10},
		Fix:    FixConfig{CommunityLimit: 3},
		Model: ModelConfig{
			Timeout: defaultModelTimeout.String(),
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads configuration from a YAML file. A missing file yields defaults.
// Environment variables are applied last.
func Load(path string) (*Config, error) {
	home := DefaultHome()
	if path == "" {
		path = filepath.Join(home, "config.yaml")
	}
	cfg := DefaultConfig(home)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HINDSIGHT_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("HINDSIGHT_MODEL_PROVIDER"); v != "" {
		c.Model.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("HINDSIGHT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if c.Model.APIKey == "" {
		c.Model.APIKey = c.envKey()
	}
}

// envKey returns the operator-supplied credential for the configured
// provider. With auto selection the first key found decides the provider.
func (c *Config) envKey() string {
	anthropic := os.Getenv("ANTHROPIC_API_KEY")
	gemini := os.Getenv("GEMINI_API_KEY")
	if gemini == "" {
		gemini = os.Getenv("GOOGLE_API_KEY")
	}

	switch c.Model.Provider {
	case ProviderAnthropic:
		return anthropic
	case ProviderGemini:
		return gemini
	case ProviderAuto:
		if anthropic != "" {
			c.Model.Provider = ProviderAnthropic
			return anthropic
		}
		if gemini != "" {
			c.Model.Provider = ProviderGemini
			return gemini
		}
	}
	return ""
}

func (c *Config) applyDefaults() {
	if c.Home == "" {
		c.Home = DefaultHome()
	}
	if c.Recall.Limit <= 0 {
		c.Recall.Limit = 10
	}
	if c.Fix.CommunityLimit <= 0 {
		c.Fix.CommunityLimit = 3
	}
	if c.Model.Provider == ProviderAuto {
		// A key from the config file with no provider named is an Anthropic key.
		c.Model.Provider = ProviderNone
		if c.Model.APIKey != "" {
			c.Model.Provider = ProviderAnthropic
		}
	}
}

// ModelTimeout parses model.timeout, falling back to 20s.
func (c *Config) ModelTimeout() time.Duration {
	d, err := time.ParseDuration(c.Model.Timeout)
	if err != nil || d <= 0 {
		return defaultModelTimeout
	}
	return d
}

// Paths returns the storage-path capability derived from this config.
func (c *Config) Paths() Paths {
	return Paths{
		Home:      c.Home,
		dbPath:    c.DBPath,
		rulesPath: c.RulesPath,
		seedPath:  c.SeedPath,
	}
}
