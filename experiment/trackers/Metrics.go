package trackers

import (
	"fmt"

	ts "github.com/samuelfneumann/agentx/timestep"
	"github.com/samuelfneumann/agentx/utils/floatutils"
)

// MetricsPoint summarises one completed episode.
//
// Accuracy and Speed are synthetic, monotone functions of the episode
// index used only to drive charts.
type MetricsPoint struct {
	Episode  int     `json:"episode" yaml:"episode"`
	Reward   float64 `json:"reward" yaml:"reward"`
	Accuracy float64 `json:"accuracy" yaml:"accuracy"`
	Speed    float64 `json:"speed" yaml:"speed"`
}

// NewMetricsPoint returns the MetricsPoint of episode with the given
// return
func NewMetricsPoint(episode int, reward float64) MetricsPoint {
	e := float64(episode)
	return MetricsPoint{
		Episode:  episode,
		Reward:   reward,
		Accuracy: floatutils.Clip(95-e/10, 40, 100),
		Speed:    floatutils.Max(10, 50-e/5),
	}
}

// Metrics tracks the episodic return in an experiment. When an
// environment returns a TimeStep, this Tracker will extract the reward
// and accumulate the return for each episode. When the last TimeStep of
// an episode is tracked, one MetricsPoint is appended to the history.
//
// The history is append-only: points are never changed once appended.
//
// Note: An episode must finish for this Tracker to record it. If the
// last episode in an experiment does not finish, that episode's return
// will not be saved.
type Metrics struct {
	lastTimeStep  int
	currentReturn float64
	episode       int
	points        []MetricsPoint
	filename      string
}

// NewMetrics creates and returns a new *Metrics Tracker which saves to
// filename
func NewMetrics(filename string) *Metrics {
	m := &Metrics{filename: filename}
	m.Reset()
	return m
}

// Track tracks the rewards seen on a timestep. By calling this method
// on every timestep, the Tracker will accumulate the return of the
// current episode, and record it when the episode's last TimeStep is
// seen. When a new episode starts, this method will automatically
// detect this and start accumulating the rewards for this new episode
// separately from the rewards seen on previous episodes.
//
// Track panics if it is called for non-sequential timesteps
func (m *Metrics) Track(step ts.TimeStep) {
	// Ensure that Track is called on sequential timesteps
	if m.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("track: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			m.lastTimeStep, step.Number)
		panic(msg)
	}

	m.currentReturn += step.Reward
	if !step.Last() {
		m.lastTimeStep = step.Number
		return
	}

	// Episode has ended, save the return and begin tracking the
	// return for a new episode
	m.points = append(m.points, NewMetricsPoint(m.episode,
		m.currentReturn))

	m.episode++
	m.currentReturn = 0.0
	m.lastTimeStep = -1
}

// Return returns the return accumulated so far in the current episode
func (m *Metrics) Return() float64 {
	return m.currentReturn
}

// Len returns the number of completed episodes
func (m *Metrics) Len() int {
	return len(m.points)
}

// Last returns the most recent MetricsPoint. The second return value is
// false if no episode has completed.
func (m *Metrics) Last() (MetricsPoint, bool) {
	if len(m.points) == 0 {
		return MetricsPoint{}, false
	}
	return m.points[len(m.points)-1], true
}

// Points returns a copy of the full history
func (m *Metrics) Points() []MetricsPoint {
	return m.Since(0)
}

// Since returns a copy of the points appended after the first n. Chart
// sinks call Since with the number of points they have already drawn
// to receive only new points.
func (m *Metrics) Since(n int) []MetricsPoint {
	if n < 0 {
		n = 0
	}
	if n >= len(m.points) {
		return nil
	}
	points := make([]MetricsPoint, len(m.points)-n)
	copy(points, m.points[n:])
	return points
}

// Rewards returns the episodic returns of the full history
func (m *Metrics) Rewards() []float64 {
	rewards := make([]float64, len(m.points))
	for i, p := range m.points {
		rewards[i] = p.Reward
	}
	return rewards
}

// Reset forgets the full history and starts again at episode 1
func (m *Metrics) Reset() {
	m.lastTimeStep = -1
	m.currentReturn = 0
	m.episode = 1
	m.points = nil
}

// Save saves the data tracked by the Metrics Tracker to disk.
func (m *Metrics) Save() error {
	return m.SaveTo(m.filename)
}

// SaveTo saves the data tracked by the Metrics Tracker to filename
func (m *Metrics) SaveTo(filename string) error {
	return save(filename, m.points)
}

// LoadMetrics loads and returns the data saved by a Metrics Tracker
func LoadMetrics(filename string) ([]MetricsPoint, error) {
	var data []MetricsPoint
	err := load(filename, &data)
	return data, err
}
