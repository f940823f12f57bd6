// Package gridworld implements 2D gridworld environments with obstacles
package gridworld

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samuelfneumann/agentx/environment"
	"github.com/samuelfneumann/agentx/timestep"
)

var _ environment.Grid = (*GridWorld)(nil)

// GridWorld represents an N x N gridworld environment.
//
// Only the grid size, the obstacle cells and the current agent position
// are tracked. Moving off the grid is a no-op on that axis, and moving
// into an obstacle leaves the agent where it was. Episodes end when the
// embedded Task reports that the agent is at its goal.
type GridWorld struct {
	environment.Task
	environment.Starter
	size        int
	obstacles   map[environment.Position]struct{}
	position    environment.Position
	discount    float64
	currentStep timestep.TimeStep
}

// New creates a new size x size gridworld with task t, starting state
// distribution s, discount factor d and the given obstacle cells. The
// gridworld is returned ready to use along with its first TimeStep.
//
// Obstacles outside the grid are rejected. An obstacle placed on a goal
// cell is a configuration error that is not checked.
func New(size int, t environment.Task, s environment.Starter, d float64,
	obstacles []environment.Position) (*GridWorld, timestep.TimeStep, error) {
	if size < 1 {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: size must be "+
			"positive, got %d", size)
	}

	blocked := make(map[environment.Position]struct{}, len(obstacles))
	for _, o := range obstacles {
		if !inBounds(o, size) {
			return nil, timestep.TimeStep{}, fmt.Errorf("new: obstacle %v "+
				"outside %dx%d grid", o, size, size)
		}
		blocked[o] = struct{}{}
	}

	g := &GridWorld{
		Task:      t,
		Starter:   s,
		size:      size,
		obstacles: blocked,
		discount:  d,
	}

	return g, g.Reset(), nil
}

// Size returns the number of rows (equivalently columns) of the grid
func (g *GridWorld) Size() int {
	return g.size
}

// Obstacles returns the obstacle cells in row-major order
func (g *GridWorld) Obstacles() []environment.Position {
	cells := make([]environment.Position, 0, len(g.obstacles))
	for o := range g.obstacles {
		cells = append(cells, o)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	return cells
}

// IsObstacle returns whether cell p is blocked
func (g *GridWorld) IsObstacle(p environment.Position) bool {
	_, ok := g.obstacles[p]
	return ok
}

// Position returns the current agent position
func (g *GridWorld) Position() environment.Position {
	return g.position
}

// SetPosition places the agent at p without taking a step. The next
// TimeStep is numbered from the current one.
func (g *GridWorld) SetPosition(p environment.Position) {
	if !inBounds(p, g.size) {
		panic(fmt.Sprintf("setPosition: %v outside %dx%d grid", p, g.size,
			g.size))
	}
	g.position = p
	g.currentStep.Observation = p.Vec()
}

// Reset resets the gridworld to a starting state from its Starter
func (g *GridWorld) Reset() timestep.TimeStep {
	g.position = g.Start()

	startStep := timestep.New(timestep.First, 0, g.discount,
		g.position.Vec(), 0)
	g.currentStep = startStep
	return startStep
}

// CurrentTimeStep returns the last TimeStep produced by the gridworld
func (g *GridWorld) CurrentTimeStep() timestep.TimeStep {
	return g.currentStep
}

// Step takes one unit step in direction action. It returns the next
// TimeStep and whether the episode ended on it.
func (g *GridWorld) Step(action environment.Direction) (timestep.TimeStep,
	bool) {
	prev := g.position
	next := g.move(prev, action)

	collided := g.IsObstacle(next)
	if collided {
		next = prev
	}
	g.position = next

	reward := g.GetReward(prev, next, collided)
	number := g.currentStep.Number + 1
	stepType := timestep.Mid

	if g.AtGoal(next) {
		stepType = timestep.Last
	}

	step := timestep.New(stepType, reward, g.discount, next.Vec(), number)
	step.Collided = collided
	g.currentStep = step

	return step, step.Last()
}

// move applies a unit step in direction d to p, clamped to the grid
func (g *GridWorld) move(p environment.Position,
	d environment.Direction) environment.Position {
	dx, dy := d.Delta()

	if x := p.X + dx; x >= 0 && x < g.size {
		p.X = x
	}
	if y := p.Y + dy; y >= 0 && y < g.size {
		p.Y = y
	}
	return p
}

func inBounds(p environment.Position, size int) bool {
	return p.X >= 0 && p.X < size && p.Y >= 0 && p.Y < size
}

func (g *GridWorld) String() string {
	var obstacles []string
	for _, o := range g.Obstacles() {
		obstacles = append(obstacles, o.String())
	}

	str := "GridWorld | At: %v  |   Goal: %v  |  Bounds: (%d, %d)  |  " +
		"Obstacles: [%v]"
	return fmt.Sprintf(str, g.position, g.Task, g.size, g.size,
		strings.Join(obstacles, " "))
}
