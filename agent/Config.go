package agent

import "fmt"

// Algorithm labels the learning algorithm a training session reports.
//
// The label is cosmetic: every Algorithm drives the same heuristic
// policy. It is kept so that dashboards and generated insights can name
// the algorithm a real agent would use.
type Algorithm string

const (
	DQN Algorithm = "DQN"
	PPO Algorithm = "PPO"
	A2C Algorithm = "A2C"
)

// Algorithms lists the registered algorithm labels in display order
var Algorithms = []Algorithm{DQN, PPO, A2C}

// Description returns the long name of the algorithm
func (a Algorithm) Description() string {
	switch a {
	case DQN:
		return "Deep Q-Network (DQN)"
	case PPO:
		return "Proximal Policy Opt (PPO)"
	case A2C:
		return "Adv Actor-Critic (A2C)"
	}
	return string(a)
}

// Validate returns an error if a is not a registered algorithm
func (a Algorithm) Validate() error {
	for _, registered := range Algorithms {
		if a == registered {
			return nil
		}
	}
	return fmt.Errorf("validate: no such algorithm %q", string(a))
}

// Next returns the algorithm following a in display order, wrapping
// around at the end
func (a Algorithm) Next() Algorithm {
	for i, registered := range Algorithms {
		if a == registered {
			return Algorithms[(i+1)%len(Algorithms)]
		}
	}
	return Algorithms[0]
}
