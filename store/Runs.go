package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/experiment/earlystop"
	"github.com/samuelfneumann/agentx/experiment/trackers"
)

// ErrRunNotFound is returned when no stored run matches an id
var ErrRunNotFound = errors.New("store: run not found")

// Run summarises one stored training run
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	StopReason string
	Config     experiment.Config
	Episodes   int
	MeanReward float64

	// BestAvgReward is the best windowed average return, only valid when
	// HasBestAvg is true
	BestAvgReward float64
	HasBestAvg    bool

	Insight string
}

// NewRun summarises the session snapshot s of a run which started at
// started and ended at finished. The run is given a new random id.
func NewRun(s experiment.Snapshot, started, finished time.Time) Run {
	run := Run{
		ID:         uuid.NewString(),
		StartedAt:  started,
		FinishedAt: finished,
		Status:     s.Agent.Status.String(),
		Config:     s.Config,
		Episodes:   s.Episodes(),
		Insight:    s.Insight,
	}
	if s.StopReason != earlystop.None {
		run.StopReason = s.StopReason.String()
	}
	if s.Convergence.HasBaseline() {
		run.BestAvgReward = s.Convergence.BestAvgReward
		run.HasBestAvg = true
	}

	if len(s.Metrics) > 0 {
		rewards := make([]float64, len(s.Metrics))
		for i, p := range s.Metrics {
			rewards[i] = p.Reward
		}
		run.MeanReward = stat.Mean(rewards, nil)
	}
	return run
}

// ShortID returns the first eight characters of the run id
func (r Run) ShortID() string {
	if len(r.ID) <= 8 {
		return r.ID
	}
	return r.ID[:8]
}

// SaveRun stores run and its metrics history in a single transaction
func (db *DB) SaveRun(ctx context.Context, run Run,
	metrics []trackers.MetricsPoint) error {
	if run.ID == "" {
		return fmt.Errorf("save run: empty run id")
	}

	config, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("save run: encode config: %w", err)
	}

	var best sql.NullFloat64
	if run.HasBestAvg {
		best = sql.NullFloat64{Float64: run.BestAvgReward, Valid: true}
	}

	err = db.transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, started_at, finished_at, status, stop_reason,
				algorithm, config, episodes, mean_reward, best_avg_reward, insight)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
			run.Status, run.StopReason, string(run.Config.Algorithm),
			string(config), run.Episodes, run.MeanReward, best, run.Insight)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO metrics (run_id, episode, reward, accuracy, speed)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare metrics insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range metrics {
			_, err := stmt.ExecContext(ctx, run.ID, p.Episode, p.Reward,
				p.Accuracy, p.Speed)
			if err != nil {
				return fmt.Errorf("insert metrics of episode %d: %w",
					p.Episode, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ShortID(), err)
	}

	db.logger.Info("run saved", "run_id", run.ID, "episodes", len(metrics))
	return nil
}

const runColumns = `id, started_at, finished_at, status, stop_reason, config,
	episodes, mean_reward, best_avg_reward, insight`

// ListRuns returns up to limit runs, most recently started first. A
// limit of zero or less returns every run.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT `+runColumns+`
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run whose id is id, or begins with id. An error
// wrapping ErrRunNotFound is returned if no run matches, and an error
// is returned if the prefix matches more than one run.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "%_") {
		return Run{}, fmt.Errorf("get run %q: %w", id, ErrRunNotFound)
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT `+runColumns+`
		FROM runs WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2`,
		id, id+"%", id)
	if err != nil {
		return Run{}, fmt.Errorf("get run %q: %w", id, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, fmt.Errorf("get run %q: %w", id, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("get run %q: %w", id, err)
	}

	switch {
	case len(runs) == 0:
		return Run{}, fmt.Errorf("get run %q: %w", id, ErrRunNotFound)
	case runs[0].ID == id || len(runs) == 1:
		return runs[0], nil
	}
	return Run{}, fmt.Errorf("get run %q: id prefix is ambiguous", id)
}

// LoadMetrics returns the metrics history of the run with id id, in
// episode order
func (db *DB) LoadMetrics(ctx context.Context, id string) (
	[]trackers.MetricsPoint, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT episode, reward, accuracy, speed
		FROM metrics WHERE run_id = ? ORDER BY episode
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	defer rows.Close()

	var points []trackers.MetricsPoint
	for rows.Next() {
		var p trackers.MetricsPoint
		if err := rows.Scan(&p.Episode, &p.Reward, &p.Accuracy,
			&p.Speed); err != nil {
			return nil, fmt.Errorf("load metrics: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	return points, nil
}

// SetInsight records the generated insight of the run with id id
func (db *DB) SetInsight(ctx context.Context, id, text string) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE runs SET insight = ? WHERE id = ?", text, id)
	if err != nil {
		return fmt.Errorf("set insight: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set insight %q: %w", id, ErrRunNotFound)
	}
	return nil
}

// DeleteRun deletes the run with id id and its metrics
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete run %q: %w", id, ErrRunNotFound)
	}
	return nil
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run               Run
		started, finished string
		config            string
		best              sql.NullFloat64
	)
	err := s.Scan(&run.ID, &started, &finished, &run.Status,
		&run.StopReason, &config, &run.Episodes, &run.MeanReward, &best,
		&run.Insight)
	if err != nil {
		return Run{}, err
	}

	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("parse start time: %w", err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, fmt.Errorf("parse finish time: %w", err)
	}
	if err := json.Unmarshal([]byte(config), &run.Config); err != nil {
		return Run{}, fmt.Errorf("decode config: %w", err)
	}
	run.BestAvgReward, run.HasBestAvg = best.Float64, best.Valid
	return run, nil
}
