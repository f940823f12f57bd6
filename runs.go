package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/agentx/config"
	"github.com/samuelfneumann/agentx/experiment/earlystop"
	"github.com/samuelfneumann/agentx/render"
	"github.com/samuelfneumann/agentx/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored training runs",
	Long: `List, show, analyze and delete the training runs stored in the run
database. Runs may be named by any unique prefix of their id.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context,
			_ *config.Config, db *store.DB) error {
			runs, err := db.ListRuns(ctx, runsLimit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context,
			_ *config.Config, db *store.DB) error {
			run, err := db.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			metrics, err := db.LoadMetrics(ctx, run.ID)
			if err != nil {
				return err
			}
			rewards := make([]float64, len(metrics))
			for i, p := range metrics {
				rewards[i] = p.Reward
			}
			printRun(cmd.OutOrStdout(), run, render.Sparkline(rewards, 60))
			return nil
		})
	},
}

var runsInsightCmd = &cobra.Command{
	Use:   "insight <id>",
	Short: "Generate and store an insight on a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context,
			cfg *config.Config, db *store.DB) error {
			run, err := db.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			metrics, err := db.LoadMetrics(ctx, run.ID)
			if err != nil {
				return err
			}

			text, err := generateInsight(ctx, cfg, metrics, run.Config)
			if err != nil {
				return err
			}
			if err := db.SetInsight(ctx, run.ID, text); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored run and its metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context,
			_ *config.Config, db *store.DB) error {
			run, err := db.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			if err := db.DeleteRun(ctx, run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", run.ShortID())
			return nil
		})
	},
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20,
		"Number of runs to list (0 for all)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsInsightCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

// withStore runs fn with the configured run database
func withStore(ctx context.Context, fn func(context.Context, *config.Config,
	*store.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Storage.Enabled {
		return fmt.Errorf("run storage is disabled (storage.enabled)")
	}
	db, err := openStore(cfg, newLogger(os.Stderr))
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, cfg, db)
}

func statusColor(run store.Run) *color.Color {
	switch {
	case run.StopReason == earlystop.Degradation.String():
		return color.New(color.FgYellow)
	case run.StopReason != "":
		return color.New(color.FgGreen)
	}
	return color.New(color.FgCyan)
}

func printRuns(out io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored runs.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STARTED", "ALGORITHM", "EPISODES", "MEAN REWARD",
			"OUTCOME")
	for _, r := range runs {
		outcome := r.StopReason
		if outcome == "" {
			outcome = r.Status
		}
		t.Row(r.ShortID(), r.StartedAt.Local().Format("2006-01-02 15:04"),
			string(r.Config.Algorithm), fmt.Sprint(r.Episodes),
			fmt.Sprintf("%.2f", r.MeanReward), outcome)
	}
	fmt.Fprintln(out, t.Render())
}

func printRun(out io.Writer, run store.Run, sparkline string) {
	label := color.New(color.Faint).Sprint
	fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprint("Run"), run.ID)
	fmt.Fprintf(out, "%s %s\n", label("started: "),
		run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "%s %v\n", label("duration:"),
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(out, "%s %s\n", label("status:  "), run.Status)
	if run.StopReason != "" {
		fmt.Fprintf(out, "%s %s\n", label("outcome: "),
			statusColor(run).Sprint(run.StopReason))
	}
	fmt.Fprintf(out, "%s %d\n", label("episodes:"), run.Episodes)
	fmt.Fprintf(out, "%s %.2f\n", label("mean:    "), run.MeanReward)
	if run.HasBestAvg {
		fmt.Fprintf(out, "%s %.2f\n", label("best avg:"), run.BestAvgReward)
	}

	c := run.Config
	fmt.Fprintf(out, "%s %s, lr %g, exploration %g, discount %g, "+
		"early stopping %t (patience %d)\n", label("config:  "),
		c.Algorithm, c.LearningRate, c.ExplorationRate, c.DiscountFactor,
		c.EarlyStopping, c.EarlyStoppingPatience)
	if sparkline != "" {
		fmt.Fprintf(out, "%s %s\n", label("rewards: "),
			color.GreenString(sparkline))
	}
	if run.Insight != "" {
		fmt.Fprintf(out, "\n%s\n%s\n", color.CyanString("Insight"),
			run.Insight)
	}
}
