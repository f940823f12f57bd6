// Package insight implements generated commentary on a training session.
//
// An Analyst asks a text Generator for a short analysis of the most recent
// metrics of a session. Generation happens out of band: it only reads
// copies of the metrics and configuration, at most one request is in
// flight at a time, and every failure of the Generator is replaced with a
// fixed fallback text.
package insight

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/experiment/trackers"
)

// MinEpisodes is the number of completed episodes needed for an analysis
const MinEpisodes = 5

const (
	// FallbackEmpty is returned when the Generator answers with no text
	FallbackEmpty = "Unable to generate insights at this time."

	// FallbackUnavailable is returned when the Generator fails
	FallbackUnavailable = "AI Analysis engine unavailable. Please check " +
		"your API configuration."
)

var (
	// ErrBusy is returned when an analysis is already in flight
	ErrBusy = errors.New("insight: analysis already in progress")

	// ErrNotEnoughData is returned when fewer than MinEpisodes episodes
	// have completed
	ErrNotEnoughData = errors.New("insight: not enough completed episodes")
)

// Generator generates text from a system instruction and a prompt
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Analyst produces insights on training sessions. It is safe for
// concurrent use.
type Analyst struct {
	gen    Generator
	busy   atomic.Bool
	logger *slog.Logger
}

// NewAnalyst returns a new Analyst which generates text with gen. If
// logger is nil, nothing is logged.
func NewAnalyst(gen Generator, logger *slog.Logger) *Analyst {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyst{gen: gen, logger: logger}
}

// Busy returns whether an analysis is in flight
func (a *Analyst) Busy() bool {
	return a.busy.Load()
}

// Analyze returns an analysis of metrics, the full metrics history of a
// session trained with configuration c.
//
// ErrNotEnoughData is returned if fewer than MinEpisodes episodes have
// completed, and ErrBusy if another analysis is in flight. Otherwise
// Analyze never returns an error: if the Generator fails, the returned
// text is FallbackUnavailable, and if it returns no text, FallbackEmpty.
func (a *Analyst) Analyze(ctx context.Context,
	metrics []trackers.MetricsPoint, c experiment.Config) (string, error) {
	if len(metrics) < MinEpisodes {
		return "", ErrNotEnoughData
	}
	if !a.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer a.busy.Store(false)

	prompt, err := Prompt(metrics, c)
	if err != nil {
		a.logger.Warn("insight prompt failed", "error", err)
		return FallbackUnavailable, nil
	}

	text, err := a.gen.Generate(ctx, SystemInstruction, prompt)
	if err != nil {
		a.logger.Warn("insight generation failed",
			"episodes", len(metrics),
			"error", err)
		return FallbackUnavailable, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackEmpty, nil
	}

	a.logger.Info("insight generated", "episodes", len(metrics))
	return text, nil
}
