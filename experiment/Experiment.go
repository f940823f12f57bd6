// Package experiment implements functionality for running a training
// session: the per-tick step engine, the scheduler which drives it and
// the session lifecycle which decides when training stops.
package experiment

import (
	"fmt"

	"github.com/samuelfneumann/agentx/agent"
	"github.com/samuelfneumann/agentx/environment"
	"github.com/samuelfneumann/agentx/environment/gridworld"
	"github.com/samuelfneumann/agentx/utils/floatutils"
)

// Status is the lifecycle status of a training session
type Status int

const (
	Idle Status = iota
	Training
	Finished
)

func (s Status) String() string {
	switch s {
	case Training:
		return "TRAINING"
	case Finished:
		return "FINISHED"
	}
	return "IDLE"
}

// AgentState is the state of the agent between two ticks
type AgentState struct {
	environment.Position
	Direction     environment.Direction
	CurrentReward float64 // Reward of the most recent step
	TotalReward   float64 // Return accumulated in the current episode
	Status
	Episode int
}

// NewAgentState returns the state of an idle agent at start, facing
// right, on the first episode
func NewAgentState(start environment.Position) AgentState {
	return AgentState{
		Position:  start,
		Direction: environment.Right,
		Status:    Idle,
		Episode:   1,
	}
}

// Config represents the user-adjustable configuration of a training
// session.
//
// Only ExplorationRate, EarlyStopping and EarlyStoppingPatience change
// how training behaves. Algorithm, LearningRate and DiscountFactor are
// reported on dashboards and in generated insights.
type Config struct {
	Algorithm             agent.Algorithm `mapstructure:"algorithm" yaml:"algorithm"`
	LearningRate          float64         `mapstructure:"learning_rate" yaml:"learning_rate"`
	ExplorationRate       float64         `mapstructure:"exploration_rate" yaml:"exploration_rate"`
	DiscountFactor        float64         `mapstructure:"discount_factor" yaml:"discount_factor"`
	EarlyStopping         bool            `mapstructure:"early_stopping" yaml:"early_stopping"`
	EarlyStoppingPatience int             `mapstructure:"early_stopping_patience" yaml:"early_stopping_patience"`
}

// DefaultConfig returns the default training configuration
func DefaultConfig() Config {
	return Config{
		Algorithm:             agent.DQN,
		LearningRate:          0.001,
		ExplorationRate:       0.1,
		DiscountFactor:        0.99,
		EarlyStopping:         true,
		EarlyStoppingPatience: 10,
	}
}

// Clamp returns a copy of c with every field moved into its documented
// range: the exploration rate into [0, 1] and the patience to at least 1.
// An unknown algorithm is replaced by the default one.
func (c Config) Clamp() Config {
	c.ExplorationRate = floatutils.ClipInterval(c.ExplorationRate, floatutils.Unit)
	if c.EarlyStoppingPatience < 1 {
		c.EarlyStoppingPatience = 1
	}
	if c.Algorithm.Validate() != nil {
		c.Algorithm = DefaultConfig().Algorithm
	}
	return c
}

// Grid describes the layout of the gridworld a session trains on
type Grid struct {
	Size      int                    `mapstructure:"size" yaml:"size"`
	Start     environment.Position   `mapstructure:"start" yaml:"start"`
	Target    environment.Position   `mapstructure:"target" yaml:"target"`
	Obstacles []environment.Position `mapstructure:"obstacles" yaml:"obstacles"`
}

// DefaultGrid returns the default 10 x 10 layout with three obstacles
// between the origin and the target
func DefaultGrid() Grid {
	return Grid{
		Size:   10,
		Target: environment.Position{X: 8, Y: 8},
		Obstacles: []environment.Position{
			{X: 4, Y: 4}, {X: 4, Y: 5}, {X: 5, Y: 4},
		},
	}
}

// Build constructs the GridWorld described by g, using reward scheme r
// and discount factor discount
func (g Grid) Build(r gridworld.Rewards, discount float64) (
	*gridworld.GridWorld, error) {
	task, err := gridworld.NewSeek(g.Target.X, g.Target.Y, g.Size, r)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	starter, err := environment.NewSingleStart(g.Start.X, g.Start.Y, g.Size,
		g.Size)
	if err != nil {
		return nil, fmt.Errorf("build: start: %w", err)
	}

	env, _, err := gridworld.New(g.Size, task, starter, discount, g.Obstacles)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return env, nil
}
