// Package policy implements heuristic policies for moving toward a target
// on a grid
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/agentx/agent"
	"github.com/samuelfneumann/agentx/environment"
	"github.com/samuelfneumann/agentx/timestep"
)

var _ agent.Explorer = (*EGreedy)(nil)

// EGreedy implements an ε-greedy policy over the four grid directions.
//
// The greedy action closes the gap to the target one axis at a time: the
// x axis is closed first (right or left), then the y axis (down or up).
// With probability ε a direction is instead chosen uniformly at random.
type EGreedy struct {
	target  environment.Position
	epsilon float64
	last    environment.Direction
	seed    rand.Source // Seed for random number generation
}

// NewEGreedy constructs a new EGreedy policy, where e=epsilon is the
// probability with which a random action is selected and target is the
// cell the greedy action moves toward
func NewEGreedy(e float64, target environment.Position,
	source rand.Source) *EGreedy {
	if e < 0 || e > 1 {
		panic(fmt.Sprintf("newEGreedy: epsilon must be in [0, 1], got %v", e))
	}

	return &EGreedy{
		target:  target,
		epsilon: e,
		last:    environment.Right,
		seed:    source,
	}
}

// NewGreedy creates a new greedy policy, which never explores
func NewGreedy(target environment.Position, source rand.Source) *EGreedy {
	return NewEGreedy(0.0, target, source)
}

// Greedy returns the greedy direction from pos toward target. The second
// return value is false if pos is the target, in which case there is no
// greedy direction.
func Greedy(pos, target environment.Position) (environment.Direction, bool) {
	switch {
	case pos.X < target.X:
		return environment.Right, true
	case pos.X > target.X:
		return environment.Left, true
	case pos.Y < target.Y:
		return environment.Down, true
	case pos.Y > target.Y:
		return environment.Up, true
	}
	return environment.Right, false
}

// SelectAction selects an action from the ε-greedy policy
func (p *EGreedy) SelectAction(t timestep.TimeStep) environment.Direction {
	pos := environment.FromVec(t.Observation)

	// Find the greedy action, keeping the last direction if there is none
	greedyAction, ok := Greedy(pos, p.target)
	if !ok {
		greedyAction = p.last
	}

	// Calculate the ε probability of choosing any action at random
	prob := p.epsilon / float64(environment.Actions)
	actionProbabilities := make([]float64, environment.Actions)
	for i := range actionProbabilities {
		actionProbabilities[i] = prob
	}

	// Adjust the probability of choosing the greedy action
	actionProbabilities[greedyAction] += (1.0 - p.epsilon)

	// Construct a categorical distribution over actions using action
	// probabilities and sample an action
	dist := distuv.NewCategorical(actionProbabilities, p.seed)
	action := environment.Directions[int(dist.Rand())]

	p.last = action
	return action
}

// SetEpsilon sets the probability of selecting a random action. Values
// outside [0, 1] are clipped.
func (p *EGreedy) SetEpsilon(e float64) {
	switch {
	case e < 0:
		e = 0
	case e > 1:
		e = 1
	}
	p.epsilon = e
}

// Epsilon returns the probability of selecting a random action
func (p *EGreedy) Epsilon() float64 {
	return p.epsilon
}

// Target returns the cell the greedy action moves toward
func (p *EGreedy) Target() environment.Position {
	return p.target
}

// Reset forgets the last direction taken, as at the start of an episode
func (p *EGreedy) Reset() {
	p.last = environment.Right
}
