package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/agentx/config"
)

var (
	configInitForce   bool
	configInitProject bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Write or display the AgentX configuration.

The user configuration is stored at ~/.config/agentx/config.yaml.
Project-specific overrides can be placed in .agentx.yaml.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ProjectFile
		if !configInitProject {
			var err error
			if path, err = config.UserConfigPath(); err != nil {
				return err
			}
		}
		if err := config.WriteDefault(path, configInitForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n",
			color.GreenString("✓"), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(cfg.Files) == 0 {
			fmt.Fprintln(w, color.New(color.Faint).Sprint(
				"# built-in defaults, no config files found"))
		}
		for _, f := range cfg.Files {
			fmt.Fprintln(w, color.New(color.Faint).Sprint("# from "+f))
		}
		fmt.Fprint(w, string(out))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false,
		"Overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configInitProject, "project", false,
		"Write "+config.ProjectFile+" in the working directory instead")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
