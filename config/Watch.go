package config

import (
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/samuelfneumann/agentx/experiment"
)

// Watch watches the highest-precedence file in files and, whenever it is
// written, reloads the full configuration from files and passes it to fn.
// A reload which fails is passed to fn as a non-nil error.
//
// The watch lasts for the lifetime of the process.
func Watch(files []string, fn func(*Config, error)) error {
	if len(files) == 0 {
		return errors.New("watch: no config file to watch")
	}

	v := viper.New()
	v.SetConfigFile(files[len(files)-1])
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		cfg, err := load(files)
		if err == nil {
			err = cfg.Validate()
		}
		fn(cfg, err)
	})
	v.WatchConfig()
	return nil
}

// ApplyTraining returns a Watch callback which pushes the training
// section of every successful reload into s. Failed reloads are passed to
// onError, which may be nil.
func ApplyTraining(s *experiment.Session, onError func(error)) func(*Config,
	error) {
	return func(cfg *Config, err error) {
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		s.SetConfig(cfg.Training)
	}
}
