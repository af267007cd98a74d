package store

import (
	"context"
	"database/sql"
)

const ddl = `
CREATE TABLE IF NOT EXISTS command_history (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    command            TEXT    NOT NULL,
    working_dir        TEXT    NOT NULL DEFAULT '',
    exit_code          INTEGER,
    timestamp          INTEGER NOT NULL,
    command_normalized TEXT    NOT NULL,
    UNIQUE(command, working_dir, timestamp)
);

CREATE INDEX IF NOT EXISTS idx_history_timestamp  ON command_history(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_history_normalized ON command_history(command_normalized);

CREATE VIRTUAL TABLE IF NOT EXISTS command_fts USING fts5(
    command,
    content='command_history',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS command_history_ai AFTER INSERT ON command_history BEGIN
    INSERT INTO command_fts(rowid, command) VALUES (new.id, new.command);
END;

CREATE TRIGGER IF NOT EXISTS command_history_ad AFTER DELETE ON command_history BEGIN
    INSERT INTO command_fts(command_fts, rowid, command) VALUES ('delete', old.id, old.command);
END;

CREATE TABLE IF NOT EXISTS community_brain (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    command       TEXT    NOT NULL,
    error_pattern TEXT    NOT NULL DEFAULT '',
    context_tags  TEXT    NOT NULL DEFAULT '',
    success_count INTEGER NOT NULL DEFAULT 0,
    fail_count    INTEGER NOT NULL DEFAULT 0,
    provenance    TEXT    NOT NULL DEFAULT 'user',
    created_at    INTEGER NOT NULL,
    UNIQUE(command, error_pattern)
);

CREATE VIRTUAL TABLE IF NOT EXISTS community_brain_fts USING fts5(
    command,
    error_pattern,
    context_tags,
    content='community_brain',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS community_brain_ai AFTER INSERT ON community_brain BEGIN
    INSERT INTO community_brain_fts(rowid, command, error_pattern, context_tags)
    VALUES (new.id, new.command, new.error_pattern, new.context_tags);
END;

CREATE TRIGGER IF NOT EXISTS community_brain_ad AFTER DELETE ON community_brain BEGIN
    INSERT INTO community_brain_fts(community_brain_fts, rowid, command, error_pattern, context_tags)
    VALUES ('delete', old.id, old.command, old.error_pattern, old.context_tags);
END;

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Init creates the schema tables if they don't exist.
func Init(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, ddl)
	return err
}
