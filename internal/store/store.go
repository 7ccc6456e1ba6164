// Package store implements the promptlib persistence engine on SQLite:
// prompt CRUD with append-only version history, a usage/scoring ledger,
// filtered listings, and full-fidelity snapshot export/import.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"promptlib/internal/logging"
)

// Store owns the database connection and is the only writer to the library
// file. Every operation opens no long-lived transaction; the import batch is
// the sole multi-statement transaction.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so row helpers can run inside
// or outside the import transaction.
type dbtx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS prompts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	is_favorite INTEGER NOT NULL DEFAULT 0,
	score_avg REAL NOT NULL DEFAULT 0,
	score_count INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	prompt_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	change_note TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	FOREIGN KEY(prompt_id) REFERENCES prompts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS usage_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	prompt_id INTEGER NOT NULL,
	input_vars TEXT NOT NULL DEFAULT '{}',
	output_text TEXT NOT NULL,
	rating INTEGER,
	used_at TEXT NOT NULL,
	FOREIGN KEY(prompt_id) REFERENCES prompts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_prompts_updated_at ON prompts(updated_at);
CREATE INDEX IF NOT EXISTS idx_prompt_versions_prompt_id ON prompt_versions(prompt_id);
CREATE INDEX IF NOT EXISTS idx_usage_logs_prompt_id ON usage_logs(prompt_id);
`

// New opens (creating if necessary) the library database at the given path
// and runs the idempotent schema bootstrap. Errors here are fatal at startup.
func New(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "New")
	defer timer.Stop()

	logging.Store("Opening prompt library at %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single-writer engine: one connection keeps SQLite's own file lock as
	// the only concurrency boundary.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.StoreDebug("Schema bootstrap complete")
	return s, nil
}

// initialize creates the three tables and their indexes if absent.
func (s *Store) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	logging.Store("Closing prompt library database")
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Stats returns per-table row counts.
func (s *Store) Stats() (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Stats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"prompts", "prompt_versions", "usage_logs"} {
		var count int64
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

// nowStamp formats the current instant the way the library stores every
// timestamp: RFC 3339 with offset, UTC.
func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// parseStamp reads a stored timestamp leniently; unparseable values yield the
// zero time rather than failing the read.
func parseStamp(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	logging.StoreDebug("Unparseable timestamp %q", value)
	return time.Time{}
}
