// Package earlystop implements a monitor which decides when training
// should halt because the windowed average episodic return has stopped
// improving, or has dropped sharply.
package earlystop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// Window is the number of most recent episodes averaged on each
	// evaluation
	Window = 5

	// Threshold is the minimum gain in windowed average return which
	// counts as an improvement
	Threshold = 0.2

	// DegradationMargin is how far below the best windowed average the
	// current average must fall for a stop to be classified as a
	// degradation rather than a plateau
	DegradationMargin = 5.0
)

// Reason classifies why a Monitor requested a stop
type Reason int

const (
	None Reason = iota
	Convergence
	Degradation
)

// String returns the human-readable description of the Reason
func (r Reason) String() string {
	switch r {
	case Convergence:
		return "Training Convergence (Plateau)"
	case Degradation:
		return "Significant Performance Degradation"
	}
	return "None"
}

// Label returns the short upper-case label used in action logs
func (r Reason) Label() string {
	switch r {
	case Convergence:
		return "CONVERGED"
	case Degradation:
		return "DEGRADATION"
	}
	return ""
}

// State is the convergence state of a training run
type State struct {
	PatienceLeft int

	// BestAvgReward is -Inf until the first full window establishes a
	// baseline
	BestAvgReward float64

	// AvgReward is the most recent windowed average, and is only valid
	// when HasAvg is true
	AvgReward float64
	HasAvg    bool
}

// HasBaseline returns whether a baseline average has been established
func (s State) HasBaseline() bool {
	return !math.IsInf(s.BestAvgReward, -1)
}

// Decision is the outcome of a single evaluation
type Decision struct {
	Stop        bool
	Reason      Reason
	Improvement float64
}

// Monitor tracks the convergence state of a single training run.
//
// The Monitor only reads the metrics history it is given and never
// modifies it. A Monitor is not safe for concurrent use.
type Monitor struct {
	state State
}

// New returns a new Monitor with patience patience
func New(patience int) *Monitor {
	m := &Monitor{}
	m.Reset(patience)
	return m
}

// Reset restores the Monitor to its initial state: full patience and no
// baseline
func (m *Monitor) Reset(patience int) {
	m.state = State{
		PatienceLeft:  clampPatience(patience),
		BestAvgReward: math.Inf(-1),
	}
}

// Limit caps the remaining patience at patience, which is used when the
// configured patience is lowered during a run. The clamped patience is
// returned.
func (m *Monitor) Limit(patience int) int {
	patience = clampPatience(patience)
	if m.state.PatienceLeft > patience {
		m.state.PatienceLeft = patience
	}
	return patience
}

// State returns the current convergence state
func (m *Monitor) State() State {
	return m.state
}

// Observe evaluates the monitor against the full episodic history of
// a run. Observe should be called once each time the history grows.
//
// Observe does nothing if earlyStopping is false or fewer than Window
// episodes have completed. The first full window only establishes the
// baseline. Afterwards, each window whose average fails to beat the
// best average by at least Threshold consumes one unit of patience,
// and an improving window restores patience to its configured value.
// Once patience is exhausted, the returned Decision requests a stop.
//
// A patience of less than 1 is treated as 1.
func (m *Monitor) Observe(rewards []float64, earlyStopping bool,
	patience int) Decision {
	patience = m.Limit(patience)

	if !earlyStopping || len(rewards) < Window {
		return Decision{}
	}

	current := stat.Mean(rewards[len(rewards)-Window:], nil)
	m.state.AvgReward = current
	m.state.HasAvg = true

	if !m.state.HasBaseline() {
		m.state.BestAvgReward = current
		return Decision{}
	}

	improvement := current - m.state.BestAvgReward
	if improvement >= Threshold {
		m.state.BestAvgReward = current
		m.state.PatienceLeft = patience
		return Decision{Improvement: improvement}
	}

	m.state.PatienceLeft--
	if m.state.PatienceLeft > 0 {
		return Decision{Improvement: improvement}
	}

	m.state.PatienceLeft = 0
	reason := Convergence
	if improvement < -DegradationMargin {
		reason = Degradation
	}
	return Decision{Stop: true, Reason: reason, Improvement: improvement}
}

// PatiencePercent returns the remaining patience as a whole percentage
// of patience, which is displayed as the stability of a run
func (s State) PatiencePercent(patience int) int {
	patience = clampPatience(patience)
	return int(math.Round(100 * float64(s.PatienceLeft) / float64(patience)))
}

// String implements fmt.Stringer
func (s State) String() string {
	best := "none"
	if s.HasBaseline() {
		best = fmt.Sprintf("%.2f", s.BestAvgReward)
	}
	avg := "none"
	if s.HasAvg {
		avg = fmt.Sprintf("%.2f", s.AvgReward)
	}
	return fmt.Sprintf("State{PatienceLeft: %d, Best: %s, Avg: %s}",
		s.PatienceLeft, best, avg)
}

func clampPatience(patience int) int {
	if patience < 1 {
		return 1
	}
	return patience
}
