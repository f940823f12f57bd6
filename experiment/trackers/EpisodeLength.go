package trackers

import (
	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/agentx/timestep"
)

// EpisodeLength records how many actions each completed episode took.
// An episode in progress is not counted until its Last TimeStep is
// tracked.
type EpisodeLength struct {
	lengths  []float64
	filename string
}

// NewEpisodeLength returns an EpisodeLength tracker which saves to
// filename. An empty filename is allowed if Save is never called.
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track records the Number of t if t ends an episode
func (e *EpisodeLength) Track(t timestep.TimeStep) {
	if t.Last() {
		e.lengths = append(e.lengths, float64(t.Number))
	}
}

// Lengths returns the recorded episode lengths in episode order
func (e *EpisodeLength) Lengths() []int {
	out := make([]int, len(e.lengths))
	for i, l := range e.lengths {
		out[i] = int(l)
	}
	return out
}

// Mean returns the mean episode length, 0 before any episode completes
func (e *EpisodeLength) Mean() float64 {
	if len(e.lengths) == 0 {
		return 0
	}
	return floats.Sum(e.lengths) / float64(len(e.lengths))
}

// Reset forgets every recorded length
func (e *EpisodeLength) Reset() {
	e.lengths = e.lengths[:0]
}

// Save writes the recorded lengths to the tracker's file
func (e *EpisodeLength) Save() error {
	return save(e.filename, e.Lengths())
}

// LoadEpisodeLengths reads lengths written by EpisodeLength.Save
func LoadEpisodeLengths(filename string) ([]int, error) {
	var data []int
	err := load(filename, &data)
	return data, err
}
