package gridworld

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/agentx/environment"
)

// Rewards holds the reward scheme of the Seek task
type Rewards struct {
	// Goal is the terminal reward for reaching the target
	Goal float64 `mapstructure:"goal" yaml:"goal"`

	// Collision is the reward for a move blocked by an obstacle
	Collision float64 `mapstructure:"collision" yaml:"collision"`

	// Living is added to every non-terminal, non-colliding step
	Living float64 `mapstructure:"living" yaml:"living"`

	// Progress is added to Living when a move strictly decreases the
	// Euclidean distance to the target
	Progress float64 `mapstructure:"progress" yaml:"progress"`

	// Regress is added to Living when a move does not decrease the
	// Euclidean distance to the target. Ties count as regress.
	Regress float64 `mapstructure:"regress" yaml:"regress"`
}

// DefaultRewards returns the default reward scheme
func DefaultRewards() Rewards {
	return Rewards{
		Goal:      100,
		Collision: -5,
		Living:    -0.1,
		Progress:  1,
		Regress:   -2,
	}
}

// Seek represents the task of reaching a single target cell in a
// GridWorld. Rewards are shaped by whether each move brings the agent
// closer to the target.
type Seek struct {
	target environment.Position
	Rewards
}

// NewSeek creates and returns a new Seek task for target cell (x, y) in a
// size x size grid
func NewSeek(x, y, size int, r Rewards) (*Seek, error) {
	target := environment.Position{X: x, Y: y}
	if !inBounds(target, size) {
		return nil, fmt.Errorf("target %v outside %dx%d grid", target, size,
			size)
	}

	return &Seek{target, r}, nil
}

// Target returns the target cell
func (s *Seek) Target() environment.Position {
	return s.target
}

// GetReward returns the reward for moving from prev to next.
//
// Rewards are checked in order, and the first match wins: reaching the
// target, colliding with an obstacle, then the living reward plus a
// progress bonus or regress penalty.
func (s *Seek) GetReward(prev, next environment.Position,
	collided bool) float64 {
	if s.AtGoal(next) {
		return s.Goal
	}
	if collided {
		return s.Collision
	}

	if s.distance(next) < s.distance(prev) {
		return s.Living + s.Progress
	}
	return s.Living + s.Regress
}

// AtGoal returns whether pos is the target cell
func (s *Seek) AtGoal(pos environment.Position) bool {
	return pos == s.target
}

// distance returns the Euclidean distance from p to the target
func (s *Seek) distance(p environment.Position) float64 {
	return floats.Distance(p.Vec().RawVector().Data,
		s.target.Vec().RawVector().Data, 2)
}

// Min returns the minimum reward attainable in the Task
func (s *Seek) Min() float64 {
	rewards := []float64{s.Goal, s.Collision, s.Living + s.Progress,
		s.Living + s.Regress}
	return floats.Min(rewards)
}

// Max returns the maximum reward attainable in the Task
func (s *Seek) Max() float64 {
	rewards := []float64{s.Goal, s.Collision, s.Living + s.Progress,
		s.Living + s.Regress}
	return floats.Max(rewards)
}

// String returns the target as a string
func (s *Seek) String() string {
	return s.target.String()
}
