// Package config implements layered loading of agentx settings: built-in
// defaults, the user config file, a project file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/agentx/environment"
	"github.com/samuelfneumann/agentx/environment/gridworld"
	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/experiment/actionlog"
	"github.com/samuelfneumann/agentx/insight"
	"github.com/samuelfneumann/agentx/store"
)

// ProjectFile is the name of the per-project config file, searched for in
// the working directory and its parents
const ProjectFile = ".agentx.yaml"

// EnvPrefix prefixes every environment override, e.g.
// AGENTX_TRAINING_EXPLORATION_RATE
const EnvPrefix = "AGENTX"

// Config is the complete agentx configuration
type Config struct {
	Training   experiment.Config `mapstructure:"training"`
	Grid       experiment.Grid   `mapstructure:"grid"`
	Rewards    gridworld.Rewards `mapstructure:"rewards"`
	Simulation SimulationConfig  `mapstructure:"simulation"`
	Insight    InsightConfig     `mapstructure:"insight"`
	Storage    StorageConfig     `mapstructure:"storage"`
	TUI        TUIConfig         `mapstructure:"tui"`

	// Files lists the config files that were merged, lowest precedence
	// first
	Files []string `mapstructure:"-"`
}

// SimulationConfig controls how the step engine is driven
type SimulationConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	Seed          uint64        `mapstructure:"seed"`
	LogCapacity   int           `mapstructure:"log_capacity"`
	LogSampleRate float64       `mapstructure:"log_sample_rate"`
}

// InsightConfig configures the language model used for training insights
type InsightConfig struct {
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	UseBedrock  bool          `mapstructure:"use_bedrock"`
	AWSRegion   string        `mapstructure:"aws_region"`
	AWSProfile  string        `mapstructure:"aws_profile"`
	MaxTokens   int64         `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Client returns the insight client configuration
func (i InsightConfig) Client() insight.ClientConfig {
	return insight.ClientConfig{
		Model:       i.Model,
		APIKey:      i.APIKey,
		UseBedrock:  i.UseBedrock,
		AWSRegion:   i.AWSRegion,
		AWSProfile:  i.AWSProfile,
		MaxTokens:   i.MaxTokens,
		Temperature: i.Temperature,
	}
}

// StorageConfig configures the run database
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TUIConfig configures the dashboard
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Training: experiment.DefaultConfig(),
		Grid:     experiment.DefaultGrid(),
		Rewards:  gridworld.DefaultRewards(),
		Simulation: SimulationConfig{
			Interval:      experiment.DefaultInterval,
			Seed:          1,
			LogCapacity:   actionlog.DefaultCapacity,
			LogSampleRate: experiment.DefaultLogSampleRate,
		},
		Insight: InsightConfig{
			Model:       string(insight.DefaultModel),
			AWSRegion:   "us-east-1",
			MaxTokens:   1024,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Storage: StorageConfig{Enabled: true},
		TUI:     TUIConfig{RefreshRate: 100 * time.Millisecond},
	}
}

// Validate returns an error describing every setting that cannot be used
func (c *Config) Validate() error {
	var errs []error
	if err := c.Training.Algorithm.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("training.algorithm: %w", err))
	}
	if c.Grid.Size < 2 {
		errs = append(errs, fmt.Errorf("grid.size: must be at least 2, "+
			"got %d", c.Grid.Size))
	}
	if c.Simulation.Interval <= 0 {
		errs = append(errs, fmt.Errorf("simulation.interval: must be "+
			"positive, got %v", c.Simulation.Interval))
	}
	if r := c.Simulation.LogSampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("simulation.log_sample_rate: must "+
			"be in [0, 1], got %v", r))
	}
	if c.TUI.RefreshRate <= 0 {
		errs = append(errs, fmt.Errorf("tui.refresh_rate: must be "+
			"positive, got %v", c.TUI.RefreshRate))
	}
	return errors.Join(errs...)
}

// Load discovers and merges the user and project config files, applies
// environment overrides and returns the result
func Load() (*Config, error) {
	var files []string

	if dir, err := UserConfigDir(); err == nil {
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}

	if path := findProjectConfig(); path != "" {
		files = append(files, path)
	}

	return load(files)
}

// LoadFromPath loads the config file at path over the defaults. It is an
// error for the file not to exist.
func LoadFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("loadFromPath: %w", err)
	}
	return load([]string{path})
}

func load(files []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, path := range files {
		file := viper.New()
		file.SetConfigFile(path)
		if err := file.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load: reading %s: %w", path, err)
		}
		if err := v.MergeConfigMap(file.AllSettings()); err != nil {
			return nil, fmt.Errorf("load: merging %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("insight.api_key", EnvPrefix+"_INSIGHT_API_KEY",
		"ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	cfg.Files = files

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = store.DefaultPath()
	}
	return cfg, nil
}

// setDefaults registers every built-in value as a viper default so that
// environment overrides apply to all keys
func setDefaults(v *viper.Viper) {
	flat := make(map[string]any)
	flatten("", settings(Default(), false), flat)
	for key, value := range flat {
		v.SetDefault(key, value)
	}
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for key, value := range in {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = value
	}
}

// settings returns c as the nested key/value tree of a config file.
// Durations are written in their string form. If redact is true, the API
// key is masked.
func settings(c *Config, redact bool) map[string]any {
	position := func(p environment.Position) map[string]any {
		return map[string]any{"x": p.X, "y": p.Y}
	}
	obstacles := make([]map[string]any, len(c.Grid.Obstacles))
	for i, o := range c.Grid.Obstacles {
		obstacles[i] = position(o)
	}

	apiKey := c.Insight.APIKey
	if redact && apiKey != "" {
		apiKey = "****"
	}

	return map[string]any{
		"training": map[string]any{
			"algorithm":               string(c.Training.Algorithm),
			"learning_rate":           c.Training.LearningRate,
			"exploration_rate":        c.Training.ExplorationRate,
			"discount_factor":         c.Training.DiscountFactor,
			"early_stopping":          c.Training.EarlyStopping,
			"early_stopping_patience": c.Training.EarlyStoppingPatience,
		},
		"grid": map[string]any{
			"size":      c.Grid.Size,
			"start":     position(c.Grid.Start),
			"target":    position(c.Grid.Target),
			"obstacles": obstacles,
		},
		"rewards": map[string]any{
			"goal":      c.Rewards.Goal,
			"collision": c.Rewards.Collision,
			"living":    c.Rewards.Living,
			"progress":  c.Rewards.Progress,
			"regress":   c.Rewards.Regress,
		},
		"simulation": map[string]any{
			"interval":        c.Simulation.Interval.String(),
			"seed":            c.Simulation.Seed,
			"log_capacity":    c.Simulation.LogCapacity,
			"log_sample_rate": c.Simulation.LogSampleRate,
		},
		"insight": map[string]any{
			"model":       c.Insight.Model,
			"api_key":     apiKey,
			"use_bedrock": c.Insight.UseBedrock,
			"aws_region":  c.Insight.AWSRegion,
			"aws_profile": c.Insight.AWSProfile,
			"max_tokens":  c.Insight.MaxTokens,
			"temperature": c.Insight.Temperature,
			"timeout":     c.Insight.Timeout.String(),
		},
		"storage": map[string]any{
			"enabled": c.Storage.Enabled,
			"path":    c.Storage.Path,
		},
		"tui": map[string]any{
			"refresh_rate": c.TUI.RefreshRate.String(),
		},
	}
}

// YAML encodes c as a config file with the API key masked
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(settings(c, true))
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return out, nil
}

// WriteDefault writes the built-in configuration to path. An existing file
// is only replaced if overwrite is true.
func WriteDefault(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("writeDefault: %s already exists", path)
	}

	out, err := yaml.Marshal(settings(Default(), false))
	if err != nil {
		return fmt.Errorf("writeDefault: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("writeDefault: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writeDefault: %w", err)
	}
	return nil
}

// Keys returns every configuration key in sorted order
func Keys() []string {
	flat := make(map[string]any)
	flatten("", settings(Default(), false), flat)
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// UserConfigDir returns the agentx directory under the XDG config home
func UserConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentx"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("userConfigDir: %w", err)
	}
	return filepath.Join(home, ".config", "agentx"), nil
}

// UserConfigPath returns the path of the user config file
func UserConfigPath() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// findProjectConfig walks up from the working directory looking for
// ProjectFile
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
