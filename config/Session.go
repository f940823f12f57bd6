package config

import (
	"fmt"
	"log/slog"

	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/experiment/actionlog"
)

// NewSession builds the gridworld, step engine and session described by c.
// If scheduler is nil, the session is driven by a TickerScheduler.
func (c *Config) NewSession(scheduler experiment.Scheduler,
	logger *slog.Logger) (*experiment.Session, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newSession: %w", err)
	}

	engine, err := experiment.NewGridEngine(c.Grid, c.Rewards, c.Training,
		c.Simulation.LogSampleRate, c.Simulation.Seed)
	if err != nil {
		return nil, fmt.Errorf("newSession: %w", err)
	}

	if scheduler == nil {
		scheduler = experiment.NewTickerScheduler()
	}

	return experiment.NewSession(c.Training, engine, scheduler,
		c.Simulation.Interval, actionlog.New(c.Simulation.LogCapacity),
		logger), nil
}
