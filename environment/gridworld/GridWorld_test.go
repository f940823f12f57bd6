package gridworld

import (
	"math"
	"testing"

	"github.com/samuelfneumann/agentx/environment"
)

const tolerance = 1e-9

func newTestGrid(t *testing.T) (*GridWorld, *Seek) {
	t.Helper()

	size := 10
	starter, err := environment.NewSingleStart(0, 0, size, size)
	if err != nil {
		t.Fatalf("could not create starter: %v", err)
	}
	task, err := NewSeek(8, 8, size, DefaultRewards())
	if err != nil {
		t.Fatalf("could not create task: %v", err)
	}
	obstacles := []environment.Position{{X: 4, Y: 4}, {X: 4, Y: 5}, {X: 5, Y: 4}}

	g, _, err := New(size, task, starter, 0.99, obstacles)
	if err != nil {
		t.Fatalf("could not create gridworld: %v", err)
	}
	return g, task
}

func TestStepStaysInBounds(t *testing.T) {
	g, _ := newTestGrid(t)

	for y := 0; y < g.Size(); y++ {
		for x := 0; x < g.Size(); x++ {
			p := environment.Position{X: x, Y: y}
			if g.IsObstacle(p) {
				continue
			}
			for _, d := range environment.Directions {
				g.SetPosition(p)
				step, _ := g.Step(d)

				next := environment.FromVec(step.Observation)
				if next.X < 0 || next.X >= g.Size() || next.Y < 0 ||
					next.Y >= g.Size() {
					t.Fatalf("step %v from %v left the grid: %v", d, p, next)
				}
				if next != g.Position() {
					t.Fatalf("observation %v does not match position %v",
						next, g.Position())
				}
			}
		}
	}
}

func TestStepObstacleRevertsPosition(t *testing.T) {
	g, task := newTestGrid(t)

	tests := []struct {
		from environment.Position
		dir  environment.Direction
	}{
		{environment.Position{X: 3, Y: 4}, environment.Right},
		{environment.Position{X: 4, Y: 3}, environment.Down},
		{environment.Position{X: 4, Y: 6}, environment.Up},
		{environment.Position{X: 6, Y: 4}, environment.Left},
	}

	for _, test := range tests {
		g.SetPosition(test.from)
		step, done := g.Step(test.dir)

		if done {
			t.Errorf("collision from %v should not end the episode", test.from)
		}
		if !step.Collided {
			t.Errorf("step %v from %v should collide", test.dir, test.from)
		}
		if got := g.Position(); got != test.from {
			t.Errorf("position after collision = %v, want %v", got, test.from)
		}
		if step.Reward != task.Collision {
			t.Errorf("collision reward = %v, want %v", step.Reward,
				task.Collision)
		}
	}
}

func TestStepRewards(t *testing.T) {
	g, _ := newTestGrid(t)

	tests := []struct {
		name string
		from environment.Position
		dir  environment.Direction
		want float64
		done bool
	}{
		{"goal", environment.Position{X: 7, Y: 8}, environment.Right, 100, true},
		{"progress", environment.Position{X: 0, Y: 0}, environment.Right, 0.9, false},
		{"regress", environment.Position{X: 1, Y: 0}, environment.Left, -2.1, false},
		{"tie at wall", environment.Position{X: 0, Y: 0}, environment.Up, -2.1, false},
		{"away from target", environment.Position{X: 8, Y: 0}, environment.Right, -2.1, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g.SetPosition(test.from)
			step, done := g.Step(test.dir)

			if math.Abs(step.Reward-test.want) > tolerance {
				t.Errorf("reward = %v, want %v", step.Reward, test.want)
			}
			if done != test.done {
				t.Errorf("done = %v, want %v", done, test.done)
			}
			if done && !step.Last() {
				t.Errorf("terminal step should have StepType Last, got %v",
					step.StepType)
			}
		})
	}
}

func TestStepNumbering(t *testing.T) {
	g, _ := newTestGrid(t)

	first := g.Reset()
	if !first.First() || first.Number != 0 {
		t.Fatalf("reset should return first step 0, got %v", first)
	}

	for i := 1; i <= 3; i++ {
		step, _ := g.Step(environment.Down)
		if step.Number != i {
			t.Errorf("step number = %d, want %d", step.Number, i)
		}
	}
}

func TestNewRejectsOutOfBoundsObstacle(t *testing.T) {
	starter, _ := environment.NewSingleStart(0, 0, 3, 3)
	task, _ := NewSeek(2, 2, 3, DefaultRewards())

	_, _, err := New(3, task, starter, 1, []environment.Position{{X: 3, Y: 0}})
	if err == nil {
		t.Error("expected error for obstacle outside the grid")
	}
}

func TestSeekBounds(t *testing.T) {
	task, err := NewSeek(1, 1, 3, DefaultRewards())
	if err != nil {
		t.Fatal(err)
	}

	if task.Max() != 100 {
		t.Errorf("max = %v, want 100", task.Max())
	}
	if task.Min() != -5 {
		t.Errorf("min = %v, want -5", task.Min())
	}
}
