// Package trackers implements Trackers, which accumulate per-episode data
// from the TimeSteps of a training run
package trackers

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/agentx/timestep"
)

// Tracker consumes every TimeStep of a run. Reset forgets all data and
// Save gob-encodes it to the Tracker's file.
type Tracker interface {
	Track(t ts.TimeStep)
	Save() error
	Reset()
}

// save gob-encodes data into filename
func save(filename string, data any) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(data); err != nil {
		return fmt.Errorf("save: encoding %s: %w", filename, err)
	}
	return nil
}

// load gob-decodes the contents of filename into data
func load(filename string, data any) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	if err = dec.Decode(data); err != nil {
		return fmt.Errorf("load: decoding %s: %w", filename, err)
	}
	return nil
}
