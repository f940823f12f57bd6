// Package environment outlines the interfaces and structs needed to
// implement concrete grid environments
package environment

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/agentx/timestep"
)

// Position is a cell on a grid. X grows to the right and Y grows
// downwards, so (0, 0) is the top-left cell.
type Position struct {
	X, Y int
}

// Vec returns the position as the 2-vector (x, y)
func (p Position) Vec() *mat.VecDense {
	return mat.NewVecDense(2, []float64{float64(p.X), float64(p.Y)})
}

// String formats the position as "(x, y)"
func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// FromVec converts an observation vector (x, y) back into a Position
func FromVec(v mat.Vector) Position {
	if v.Len() != 2 {
		panic(fmt.Sprintf("fromVec: observation must have length 2, got %d",
			v.Len()))
	}
	return Position{int(v.AtVec(0)), int(v.AtVec(1))}
}

// Direction is one of the four cardinal moves an agent can take
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Actions is the number of distinct directions
const Actions = 4

// Directions lists every direction in action-index order
var Directions = [Actions]Direction{Up, Down, Left, Right}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Action returns the action label of the direction, e.g. MOVE_UP
func (d Direction) Action() string {
	return "MOVE_" + strings.ToUpper(d.String())
}

// Delta returns the unit offset of the direction
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	panic(fmt.Sprintf("delta: no such direction %d", int(d)))
}

// Starter chooses the cell each episode begins in
type Starter interface {
	Start() Position
}

// Task scores moves and decides when an episode is complete
type Task interface {
	// GetReward returns the reward for moving from prev to next. The
	// collided argument is true when the move was blocked by an
	// obstacle, in which case next == prev.
	GetReward(prev, next Position, collided bool) float64

	// AtGoal returns whether pos completes the task
	AtGoal(pos Position) bool

	// Min returns the minimum reward attainable in the Task
	Min() float64

	// Max returns the maximum reward attainable in the Task
	Max() float64
}

// Environment is a grid the agent moves through. Step reports whether the
// returned TimeStep ended the episode.
type Environment interface {
	Task
	Starter
	Reset() timestep.TimeStep // Resets between episodes
	Step(action Direction) (timestep.TimeStep, bool)
	CurrentTimeStep() timestep.TimeStep
}

// Grid is an Environment on Size x Size cells which can report its layout
// and place the agent on a cell without stepping
type Grid interface {
	Environment
	Size() int
	Obstacles() []Position
	IsObstacle(p Position) bool
	Position() Position
	SetPosition(p Position)
}
