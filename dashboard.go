package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/samuelfneumann/agentx/config"
	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/store"
	"github.com/samuelfneumann/agentx/tui"
)

// runDashboard runs the interactive dashboard until the user quits
func runDashboard() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile, err := openLogFile()
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := newLogger(logFile)

	session, err := cfg.NewSession(nil, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	opts := tui.Options{
		RefreshRate:    cfg.TUI.RefreshRate,
		InsightTimeout: cfg.Insight.Timeout,
	}
	if analyst, err := newAnalyst(cfg, logger); err != nil {
		opts.Unavailable = "Insights unavailable: " + err.Error()
	} else {
		opts.Analyst = analyst
	}

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		opts.OnFinish = func(s experiment.Snapshot, started time.Time) {
			run := store.NewRun(s, started, time.Now())
			if err := db.SaveRun(context.Background(), run,
				s.Metrics); err != nil {
				logger.Warn("saving run failed", "error", err)
				return
			}
			logger.Info("run saved", "run_id", run.ID)
		}
	}

	if len(cfg.Files) > 0 {
		err := config.Watch(cfg.Files, config.ApplyTraining(session,
			func(err error) {
				logger.Warn("config reload failed", "error", err)
			}))
		if err != nil {
			logger.Warn("watching config failed", "error", err)
		}
	}

	program := tea.NewProgram(tui.New(session, opts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
