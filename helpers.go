package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/agentx/config"
	"github.com/samuelfneumann/agentx/insight"
	"github.com/samuelfneumann/agentx/store"
)

// newLogger returns a text logger writing to w. Debug records, one per
// completed episode, are only written in verbose mode.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// logFilePath returns the log file used while the dashboard owns the
// terminal
func logFilePath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "agentx", "agentx.log")
}

// openLogFile opens the dashboard log file for appending
func openLogFile() (*os.File, error) {
	path := logFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// newAnalyst returns an Analyst backed by the configured model
func newAnalyst(cfg *config.Config, logger *slog.Logger) (*insight.Analyst,
	error) {
	client, err := insight.NewClient(cfg.Insight.Client())
	if err != nil {
		return nil, err
	}
	return insight.NewAnalyst(client, logger), nil
}

// openStore opens the run database, or returns nil if storage is
// disabled
func openStore(cfg *config.Config, logger *slog.Logger) (*store.DB, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}
	db, err := store.Open(cfg.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	return db, nil
}
