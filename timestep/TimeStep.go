// Package timestep defines the single step of interaction between an
// agent and a gridworld
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType marks where in its episode a TimeStep falls
type StepType int

const (
	First StepType = iota // Produced by a reset
	Mid
	Last // The agent reached the goal
)

func (s StepType) String() string {
	switch s {
	case First:
		return "first"
	case Mid:
		return "mid"
	case Last:
		return "last"
	}
	return fmt.Sprintf("StepType(%d)", int(s))
}

// TimeStep is the outcome of one action.
//
// Observation is the 2-vector (x, y) of the cell the agent occupies after
// the action and Number counts actions since the episode began, so the
// First TimeStep of an episode has Number 0. Collided is set when the
// action was blocked by an obstacle and the agent stayed in place.
type TimeStep struct {
	StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
	Collided    bool
}

// New returns a TimeStep of type t with reward r, discount d, observation
// o and step number n
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{StepType: t, Reward: r, Discount: d, Observation: o,
		Number: n}
}

func (t TimeStep) First() bool { return t.StepType == First }
func (t TimeStep) Mid() bool   { return t.StepType == Mid }
func (t TimeStep) Last() bool  { return t.StepType == Last }

func (t TimeStep) String() string {
	s := fmt.Sprintf("step %d (%v) reward %.2f", t.Number, t.StepType,
		t.Reward)
	if t.Collided {
		s += " collided"
	}
	return s
}
