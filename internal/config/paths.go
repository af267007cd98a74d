package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves every on-disk location the core touches. Nothing else in
// the module builds paths from the home directory.
type Paths struct {
	Home string

	dbPath    string
	rulesPath string
	seedPath  string
}

// NewPaths returns Paths rooted at home with default file names.
func NewPaths(home string) Paths {
	return Paths{Home: home}
}

// DB is the SQLite database holding history and the knowledge base.
func (p Paths) DB() string {
	if p.dbPath != "" {
		return p.dbPath
	}
	return filepath.Join(p.Home, "hindsight.db")
}

// Rules is the user-editable rule file.
func (p Paths) Rules() string {
	if p.rulesPath != "" {
		return p.rulesPath
	}
	return filepath.Join(p.Home, "error_rules.yaml")
}

// Seed is the optional knowledge base seed file.
func (p Paths) Seed() string {
	if p.seedPath != "" {
		return p.seedPath
	}
	return filepath.Join(p.Home, "seed.json")
}

// CommandLog is the log appended to by the shell hook.
func (p Paths) CommandLog() string {
	return filepath.Join(p.Home, "commands.log")
}

// Ensure creates the home directory and the database's parent directory.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Home, filepath.Dir(p.DB())} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
