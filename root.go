package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samuelfneumann/agentx/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "agentx",
	Short: "Gridworld agent trainer with early stopping",
	Long: `AgentX trains an agent to reach a target on a gridworld, one step per
tick, and stops training on its own once the average episode reward
plateaus or degrades.

With no arguments, launches the interactive dashboard.

Configuration is read from ~/.config/agentx/config.yaml, then from a
.agentx.yaml in the working directory or any of its parents, then from
AGENTX_* environment variables.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file to use instead of the discovered ones")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log every completed episode")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads the configuration selected by the --config flag
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
