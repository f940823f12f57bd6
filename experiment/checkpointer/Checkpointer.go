// Package checkpointer implements periodic checkpointing of training
// data while a session runs
package checkpointer

import (
	"github.com/samuelfneumann/agentx/experiment/trackers"
)

// Saver is an object that can be saved to a named file
type Saver interface {
	SaveTo(filename string) error
}

// Checkpointer checkpoints/saves objects based on the episodes completed
// during training
type Checkpointer interface {
	Checkpoint(trackers.MetricsPoint) error
}
