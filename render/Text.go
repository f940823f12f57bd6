// Package render draws training sessions: the grid and reward trend as
// terminal text and a snapshot of both as a PNG image.
package render

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/agentx/environment"
	"github.com/samuelfneumann/agentx/experiment"
)

// Cell glyphs of the text grid
const (
	Empty    = '.'
	Obstacle = '#'
	Target   = 'T'
	Reached  = '*'
)

// sparks are the bars of a Sparkline, lowest first
var sparks = []rune("▁▂▃▄▅▆▇█")

// Glyph returns the glyph of an agent facing d
func Glyph(d environment.Direction) rune {
	switch d {
	case environment.Up:
		return '^'
	case environment.Down:
		return 'v'
	case environment.Left:
		return '<'
	}
	return '>'
}

// Grid renders g as text, one line per row with cells separated by
// spaces. The agent is drawn facing its direction, or as Reached when it
// stands on the target.
func Grid(a experiment.AgentState, g experiment.Grid) string {
	cells := make([][]rune, g.Size)
	for y := range cells {
		cells[y] = make([]rune, g.Size)
		for x := range cells[y] {
			cells[y][x] = Empty
		}
	}

	set := func(p environment.Position, r rune) {
		if p.X >= 0 && p.X < g.Size && p.Y >= 0 && p.Y < g.Size {
			cells[p.Y][p.X] = r
		}
	}
	for _, o := range g.Obstacles {
		set(o, Obstacle)
	}
	set(g.Target, Target)
	if a.Position == g.Target {
		set(a.Position, Reached)
	} else {
		set(a.Position, Glyph(a.Direction))
	}

	var b strings.Builder
	for y, row := range cells {
		for x, r := range row {
			if x > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
		}
		if y < len(cells)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Sparkline renders the last width values as a line of bars scaled
// between their minimum and maximum. A constant series is drawn at half
// height.
func Sparkline(values []float64, width int) string {
	if width < 1 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	min, max := floats.Min(values), floats.Max(values)
	top := len(sparks) - 1

	line := make([]rune, len(values))
	for i, v := range values {
		level := top / 2
		if max > min {
			level = int(math.Round((v - min) / (max - min) * float64(top)))
		}
		line[i] = sparks[level]
	}
	return string(line)
}
