// Package store persists command history and the community knowledge base
// in a single SQLite file with FTS5 indexes over both tables.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnavailable is returned when the database cannot be opened or
// initialized.
var ErrUnavailable = errors.New("store unavailable")

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the time source used for recency scoring and
// created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// SQLiteStore owns the database handle shared by History and Brain.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	history *History
	brain   *Brain
}

// Open creates or opens a SQLite database at the given path and initializes the schema.
func Open(ctx context.Context, dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create dir: %v", ErrUnavailable, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: open db: %v", ErrUnavailable, err)
	}
	if err := Init(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", ErrUnavailable, err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.history = &History{db: db, now: s.now}
	s.brain = &Brain{db: db, now: s.now}
	return s, nil
}

// History returns the command history table.
func (s *SQLiteStore) History() *History { return s.history }

// Brain returns the community knowledge base table.
func (s *SQLiteStore) Brain() *Brain { return s.brain }

// GetMeta returns a metadata value by key, or "" if not set.
func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetMeta sets a metadata key-value pair.
func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
