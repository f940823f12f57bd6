// Package agent defines an agent interface
package agent

import (
	"github.com/samuelfneumann/agentx/environment"
	"github.com/samuelfneumann/agentx/timestep"
)

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. The policies in this
// module do not learn: they map the current TimeStep to a Direction using
// a fixed heuristic, with some probability of exploring at random.
type Policy interface {
	SelectAction(t timestep.TimeStep) environment.Direction
}

// Explorer is a Policy whose exploration rate can be changed while it is
// acting. Reset clears whatever the Policy remembers of the current
// episode and is called when an episode ends.
type Explorer interface {
	Policy
	SetEpsilon(float64)
	Epsilon() float64
	Reset()
}
