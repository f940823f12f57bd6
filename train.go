package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/agentx/config"
	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/experiment/checkpointer"
	"github.com/samuelfneumann/agentx/experiment/earlystop"
	"github.com/samuelfneumann/agentx/experiment/trackers"
	"github.com/samuelfneumann/agentx/render"
	"github.com/samuelfneumann/agentx/store"
	"github.com/samuelfneumann/agentx/utils/progressbar"
)

// progressEvery is the period between two progress bar redraws
const progressEvery = 100 * time.Millisecond

// Files written into the checkpoint directory when a run ends
const (
	finalMetricsFile = "metrics-final.bin"
	lengthsFile      = "lengths.bin"
)

var (
	trainEpisodes        int
	trainInterval        time.Duration
	trainSeed            uint64
	trainPNG             string
	trainReport          string
	trainCheckpointEvery int
	trainCheckpointDir   string
	trainInsight         bool
	trainNoStore         bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train headless until convergence",
	Long: `Train without the dashboard, showing a progress bar, until the
session stops on its own, the episode limit is reached or the command is
interrupted. The finished run is stored in the run database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("interval") {
			cfg.Simulation.Interval = trainInterval
		}
		if cmd.Flags().Changed("seed") {
			cfg.Simulation.Seed = trainSeed
		}
		if trainNoStore {
			cfg.Storage.Enabled = false
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runTrain(ctx, cfg, cmd.OutOrStdout())
	},
}

func init() {
	f := trainCmd.Flags()
	f.IntVar(&trainEpisodes, "episodes", 0,
		"Stop after this many episodes (0 for no limit)")
	f.DurationVar(&trainInterval, "interval", 10*time.Millisecond,
		"Period between two training steps (overrides simulation.interval)")
	f.Uint64Var(&trainSeed, "seed", 1,
		"Random seed (overrides simulation.seed)")
	f.StringVar(&trainPNG, "png", "",
		"Write a PNG snapshot of the finished run to this file")
	f.StringVar(&trainReport, "report", "",
		"Write a YAML report of the finished run to this file")
	f.IntVar(&trainCheckpointEvery, "checkpoint-every", 0,
		"Save the metrics history every N episodes, and the full history "+
			"and episode lengths when the run ends (0 to disable)")
	f.StringVar(&trainCheckpointDir, "checkpoint-dir", "checkpoints",
		"Directory of metrics checkpoints")
	f.BoolVar(&trainInsight, "insight", false,
		"Generate an insight on the finished run")
	f.BoolVar(&trainNoStore, "no-store", false,
		"Do not store the run in the run database")
}

// runTrain trains a session built from cfg until it stops and then
// writes every requested output
func runTrain(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger := newLogger(os.Stderr)

	session, err := cfg.NewSession(nil, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	if trainCheckpointEvery > 0 {
		if err := os.MkdirAll(trainCheckpointDir, 0o755); err != nil {
			return fmt.Errorf("creating checkpoint directory: %w", err)
		}
		session.CheckpointMetrics(trainCheckpointEvery,
			checkpointer.FileTimer(filepath.Join(trainCheckpointDir,
				"metrics"), ".bin"))
		session.Track(trackers.NewEpisodeLength(filepath.Join(
			trainCheckpointDir, lengthsFile)))
	}

	started := time.Now()
	session.Start()
	done := session.Done()

	bar := progressbar.New(out, 30, trainEpisodes)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-done:
			return nil
		case <-gctx.Done():
			session.Stop()
			return nil
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(progressEvery)
		defer ticker.Stop()
		for {
			s := session.Snapshot()
			bar.Set(s.Episodes())
			bar.SetStatus(progressStatus(s))
			bar.Display()

			if trainEpisodes > 0 && s.Episodes() >= trainEpisodes {
				session.Stop()
			}

			select {
			case <-done:
				bar.Set(session.Snapshot().Episodes())
				bar.Close()
				return nil
			case <-ticker.C:
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	finished := time.Now()

	// An interrupted run is still summarised and stored
	ctx = context.WithoutCancel(ctx)

	snap := session.Snapshot()
	printSummary(out, snap)

	if trainCheckpointEvery > 0 {
		if err := saveFinal(session, trainCheckpointDir); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote final metrics to %s\n", trainCheckpointDir)
	}

	if trainInsight {
		text, err := generateInsight(ctx, cfg, snap.Metrics, snap.Config)
		if err != nil {
			color.New(color.FgYellow).Fprintf(out, "Insight: %v\n", err)
		} else {
			session.SetInsight(text)
			snap.Insight = text
			fmt.Fprintf(out, "\n%s\n%s\n", color.CyanString("Insight"), text)
		}
	}

	var run *store.Run
	if cfg.Storage.Enabled {
		r := store.NewRun(snap, started, finished)
		if err := saveRun(ctx, cfg, r, snap.Metrics); err != nil {
			return err
		}
		run = &r
		fmt.Fprintf(out, "Stored run %s\n", color.CyanString(r.ShortID()))
	}

	if trainPNG != "" {
		if err := render.SavePNG(snap, trainPNG); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", trainPNG)
	}

	if trainReport != "" {
		if err := writeReport(trainReport, newReport(snap, run)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", trainReport)
	}
	return nil
}

// saveFinal writes the complete metrics history and the episode lengths
// of a finished run into dir
func saveFinal(s *experiment.Session, dir string) error {
	if err := s.SaveMetrics(filepath.Join(dir, finalMetricsFile)); err != nil {
		return fmt.Errorf("saving final metrics: %w", err)
	}
	if err := s.SaveTrackers(); err != nil {
		return fmt.Errorf("saving episode lengths: %w", err)
	}
	return nil
}

func progressStatus(s experiment.Snapshot) string {
	avg := "N/A"
	if s.Convergence.HasAvg {
		avg = fmt.Sprintf("%.1f", s.Convergence.AvgReward)
	}
	return fmt.Sprintf("avg %s | patience %d/%d", avg,
		s.Convergence.PatienceLeft, s.Config.EarlyStoppingPatience)
}

// printSummary prints the outcome of a finished run
func printSummary(out io.Writer, s experiment.Snapshot) {
	outcome := color.New(color.FgCyan, color.Bold).Sprint("Stopped")
	switch s.StopReason {
	case earlystop.Convergence:
		outcome = color.New(color.FgGreen, color.Bold).Sprint(s.StopReason)
	case earlystop.Degradation:
		outcome = color.New(color.FgYellow, color.Bold).Sprint(s.StopReason)
	}

	fmt.Fprintf(out, "\n%s after %d episodes\n", outcome, s.Episodes())
	if s.Convergence.HasBaseline() {
		fmt.Fprintf(out, "  best average reward: %.2f\n",
			s.Convergence.BestAvgReward)
	}
	if s.Convergence.HasAvg {
		fmt.Fprintf(out, "  last average reward: %.2f\n",
			s.Convergence.AvgReward)
	}
	fmt.Fprintf(out, "  mean episode length: %.1f\n", s.MeanEpisodeLength)

	rewards := make([]float64, len(s.Metrics))
	for i, p := range s.Metrics {
		rewards[i] = p.Reward
	}
	if line := render.Sparkline(rewards, 60); line != "" {
		fmt.Fprintf(out, "  rewards: %s\n", color.GreenString(line))
	}
}

// generateInsight asks the configured model for an analysis of metrics
func generateInsight(ctx context.Context, cfg *config.Config,
	metrics []trackers.MetricsPoint, c experiment.Config) (string, error) {
	analyst, err := newAnalyst(cfg, newLogger(os.Stderr))
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Insight.Timeout)
	defer cancel()
	return analyst.Analyze(ctx, metrics, c)
}

func saveRun(ctx context.Context, cfg *config.Config, run store.Run,
	metrics []trackers.MetricsPoint) error {
	db, err := openStore(cfg, newLogger(os.Stderr))
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveRun(ctx, run, metrics)
}

// report is the YAML summary of a finished run
type report struct {
	RunID             string                  `yaml:"run_id,omitempty"`
	Status            string                  `yaml:"status"`
	StopReason        string                  `yaml:"stop_reason,omitempty"`
	Episodes          int                     `yaml:"episodes"`
	BestAvgReward     *float64                `yaml:"best_avg_reward,omitempty"`
	MeanEpisodeLength float64                 `yaml:"mean_episode_length"`
	Config            experiment.Config       `yaml:"config"`
	Insight           string                  `yaml:"insight,omitempty"`
	Metrics           []trackers.MetricsPoint `yaml:"metrics"`
}

func newReport(s experiment.Snapshot, run *store.Run) report {
	r := report{
		Status:            s.Agent.Status.String(),
		Episodes:          s.Episodes(),
		MeanEpisodeLength: s.MeanEpisodeLength,
		Config:            s.Config,
		Insight:           s.Insight,
		Metrics:           s.Metrics,
	}
	if s.StopReason != earlystop.None {
		r.StopReason = s.StopReason.String()
	}
	if s.Convergence.HasBaseline() {
		best := s.Convergence.BestAvgReward
		r.BestAvgReward = &best
	}
	if run != nil {
		r.RunID = run.ID
	}
	return r
}

func writeReport(path string, r report) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
