// Package store implements SQLite persistence of finished training runs
// and their metrics histories.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database of training runs
type DB struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger
}

// DefaultPath returns the default location of the run database
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "agentx", "runs.db")
}

// Open opens the SQLite database at path, creating it and its parent
// directories if needed, and applies all pending migrations. If logger
// is nil, nothing is logged.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn, path: path, logger: logger}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the path to the database file
func (db *DB) Path() string {
	return db.path
}

// migrate applies all pending schema migrations
func (db *DB) migrate(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	row := db.conn.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
		{2, migrationV2Metrics},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		err := db.transaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return fmt.Errorf("apply migration v%d: %w", m.version, err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
				m.version, formatTime(time.Now()))
			if err != nil {
				return fmt.Errorf("record migration v%d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		db.logger.Debug("applied migration", "version", m.version)
	}
	return nil
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	status TEXT NOT NULL,
	stop_reason TEXT NOT NULL DEFAULT '',
	algorithm TEXT NOT NULL,
	config TEXT NOT NULL,
	episodes INTEGER NOT NULL DEFAULT 0,
	mean_reward REAL NOT NULL DEFAULT 0,
	best_avg_reward REAL,
	insight TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

const migrationV2Metrics = `
CREATE TABLE IF NOT EXISTS metrics (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	episode INTEGER NOT NULL,
	reward REAL NOT NULL,
	accuracy REAL NOT NULL,
	speed REAL NOT NULL,
	PRIMARY KEY (run_id, episode)
);
`

// transaction runs fn within a transaction, rolling back if fn fails
func (db *DB) transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// formatTime formats a time for storage in SQLite
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a time stored in SQLite
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
