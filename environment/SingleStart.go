package environment

import "fmt"

// SingleStart is a Starter which always starts episodes in the same cell
type SingleStart struct {
	start Position
}

// NewSingleStart returns a Starter which always starts at (x, y) on a grid
// with r rows and c columns
func NewSingleStart(x, y, r, c int) (*SingleStart, error) {
	if x < 0 || x >= c {
		return nil, fmt.Errorf("x = %d outside [0, %d)", x, c)
	} else if y < 0 || y >= r {
		return nil, fmt.Errorf("y = %d outside [0, %d)", y, r)
	}

	return &SingleStart{Position{x, y}}, nil
}

// Start returns the starting position
func (s *SingleStart) Start() Position {
	return s.start
}
