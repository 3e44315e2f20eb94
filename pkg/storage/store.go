// Package storage provides the SQLite persistence layer behind the domain
// storage ports: the append-only message log, reminders and working memory.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/amayadev/amaya/pkg/logger"
)

// schemaVersion is the current PRAGMA user_version.
const schemaVersion = 2

// Store owns the database handle and exposes the typed stores.
type Store struct {
	db *sql.DB

	Messages  *MessageStore
	Reminders *ReminderStore
	Memory    *MemoryStore
}

// Open opens (creating if needed) the SQLite database at path and runs
// migrations. The single connection gives the read-after-write consistency
// the orchestrator relies on.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Serialize access through one connection; the write volume here is tiny
	// and this keeps reads consistent with the core's own writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.Messages = &MessageStore{db: db}
	s.Reminders = &ReminderStore{db: db}
	s.Memory = &MemoryStore{db: db}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if _, err := s.db.ExecContext(ctx, schemaV1); err != nil {
			return fmt.Errorf("apply schema v1: %w", err)
		}
		version = 1
	}
	if version < 2 {
		if _, err := s.db.ExecContext(ctx, schemaV2); err != nil {
			return fmt.Errorf("apply schema v2: %w", err)
		}
		version = 2
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	logger.DebugCF("storage", "schema up to date", map[string]any{"version": schemaVersion})
	return nil
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS messages (
	message_id     TEXT PRIMARY KEY,
	channel        TEXT NOT NULL,
	role           TEXT NOT NULL,
	content        TEXT NOT NULL,
	metadata       TEXT,
	created_at_utc TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reminders (
	reminder_id        INTEGER PRIMARY KEY AUTOINCREMENT,
	title              TEXT NOT NULL,
	remind_at_utc      TEXT NOT NULL,
	prompt             TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending',
	next_action_at_utc TEXT,
	created_at_utc     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at_utc     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reminders_next_action
	ON reminders (next_action_at_utc) WHERE next_action_at_utc IS NOT NULL;

CREATE TABLE IF NOT EXISTS memory_groups (
	memory_group_id INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT NOT NULL UNIQUE,
	created_at_utc  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS memory_points (
	memory_point_id INTEGER PRIMARY KEY AUTOINCREMENT,
	memory_group_id INTEGER NOT NULL REFERENCES memory_groups(memory_group_id),
	anchor          TEXT NOT NULL,
	content         TEXT NOT NULL,
	weight          REAL NOT NULL DEFAULT 1.0,
	created_at_utc  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// schemaV2 adds cron recurrence to reminders.
const schemaV2 = `
ALTER TABLE reminders ADD COLUMN recur_cron TEXT NOT NULL DEFAULT '';
`
