package checkpointer

import (
	"fmt"

	"github.com/samuelfneumann/agentx/experiment/trackers"
)

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	interval int
	object   Saver // Object to save

	// filename returns the filename of the file to save the object in.
	//
	// If each checkpoint should be saved in a separate file with each
	// file having an incremented number as a suffix (e.g. metrics1.bin,
	// metrics2.bin, ..., metricsK.bin), then use FilenameEnumerator.
	// If the names only need to be unique, use FileTimer. For example:
	//
	//	n := NewNEpisode(10, metrics, FileTimer("metrics", ".bin"))
	filename func() string
}

// NewNEpisode returns a Checkpointer which saves object every n
// completed episodes
func NewNEpisode(n int, object Saver, filename func() string) Checkpointer {
	if n < 1 {
		panic(fmt.Sprintf("newNEpisode: n must be positive, got %d", n))
	}
	return &nEpisode{
		interval: n,
		object:   object,
		filename: filename,
	}
}

// Checkpoint saves the Checkpointer's object if the episode of point is a
// multiple of the checkpointing interval
func (n *nEpisode) Checkpoint(point trackers.MetricsPoint) error {
	if point.Episode%n.interval != 0 {
		return nil
	}

	filename := n.filename()
	if err := n.object.SaveTo(filename); err != nil {
		return fmt.Errorf("checkpoint: episode %d: %w", point.Episode, err)
	}
	return nil
}
