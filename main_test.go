package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/agentx/config"
	"github.com/samuelfneumann/agentx/experiment/trackers"
	"github.com/samuelfneumann/agentx/store"
)

// setTrainFlags sets the train flags for one test and restores them
// afterwards
func setTrainFlags(t *testing.T, episodes int, png, report string) {
	t.Helper()
	oldEpisodes, oldPNG, oldReport := trainEpisodes, trainPNG, trainReport
	t.Cleanup(func() {
		trainEpisodes, trainPNG, trainReport = oldEpisodes, oldPNG, oldReport
	})
	trainEpisodes, trainPNG, trainReport = episodes, png, report
}

func fastConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Training.ExplorationRate = 0
	cfg.Training.EarlyStoppingPatience = 3
	cfg.Simulation.Interval = time.Millisecond
	cfg.Storage.Path = filepath.Join(t.TempDir(), "runs.db")
	return cfg
}

func TestTrainUntilConvergence(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "run.png")
	reportPath := filepath.Join(dir, "run.yaml")
	setTrainFlags(t, 0, pngPath, reportPath)

	cfg := fastConfig(t)
	var out bytes.Buffer
	if err := runTrain(context.Background(), cfg, &out); err != nil {
		t.Fatalf("train: %v", err)
	}

	if !strings.Contains(out.String(), "Training Convergence (Plateau)") {
		t.Errorf("summary does not report convergence:\n%s", out.String())
	}
	if _, err := os.Stat(pngPath); err != nil {
		t.Errorf("png not written: %v", err)
	}

	raw, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var r report
	if err := yaml.Unmarshal(raw, &r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if r.Status != "FINISHED" || r.Episodes != 8 || len(r.Metrics) != 8 {
		t.Errorf("report status %s with %d episodes (%d points), want "+
			"FINISHED with 8", r.Status, r.Episodes, len(r.Metrics))
	}
	if r.BestAvgReward == nil || *r.BestAvgReward != 113.5 {
		t.Errorf("best average reward = %v, want 113.5", r.BestAvgReward)
	}

	db, err := store.Open(cfg.Storage.Path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	runs, err := db.ListRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("stored runs = %d, %v; want 1", len(runs), err)
	}
	if runs[0].ID != r.RunID {
		t.Errorf("report run id %q, stored %q", r.RunID, runs[0].ID)
	}

	var listing bytes.Buffer
	printRuns(&listing, runs)
	if !strings.Contains(listing.String(), runs[0].ShortID()) {
		t.Errorf("listing does not show the run:\n%s", listing.String())
	}
}

func TestTrainWritesCheckpoints(t *testing.T) {
	setTrainFlags(t, 0, "", "")
	dir := t.TempDir()
	oldEvery, oldDir := trainCheckpointEvery, trainCheckpointDir
	t.Cleanup(func() {
		trainCheckpointEvery, trainCheckpointDir = oldEvery, oldDir
	})
	trainCheckpointEvery, trainCheckpointDir = 2, dir

	cfg := fastConfig(t)
	cfg.Storage.Enabled = false
	if err := runTrain(context.Background(), cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("train: %v", err)
	}

	// One periodic checkpoint every two of the eight episodes
	periodic, err := filepath.Glob(filepath.Join(dir, "metrics-2*.bin"))
	if err != nil || len(periodic) != 4 {
		t.Errorf("periodic checkpoints = %v, %v; want 4 files", periodic, err)
	}

	points, err := trackers.LoadMetrics(filepath.Join(dir, finalMetricsFile))
	if err != nil {
		t.Fatalf("load final metrics: %v", err)
	}
	if len(points) != 8 {
		t.Errorf("final metrics hold %d episodes, want 8", len(points))
	}

	lengths, err := trackers.LoadEpisodeLengths(filepath.Join(dir,
		lengthsFile))
	if err != nil {
		t.Fatalf("load episode lengths: %v", err)
	}
	want := []int{16, 16, 16, 16, 16, 16, 16, 16}
	if diff := cmp.Diff(want, lengths); diff != "" {
		t.Errorf("episode lengths mismatch (-want +got):\n%s", diff)
	}
}

func TestTrainEpisodeLimit(t *testing.T) {
	setTrainFlags(t, 2, "", "")

	cfg := fastConfig(t)
	cfg.Training.EarlyStopping = false
	cfg.Storage.Enabled = false

	var out bytes.Buffer
	if err := runTrain(context.Background(), cfg, &out); err != nil {
		t.Fatalf("train: %v", err)
	}
	if !strings.Contains(out.String(), "Stopped after") {
		t.Errorf("summary does not report a manual stop:\n%s", out.String())
	}
}

func TestTrainCanceled(t *testing.T) {
	setTrainFlags(t, 0, "", "")

	cfg := fastConfig(t)
	cfg.Training.EarlyStopping = false
	cfg.Storage.Enabled = false

	ctx, cancel := context.WithTimeout(context.Background(),
		50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runTrain(ctx, cfg, &bytes.Buffer{}) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("train: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("training did not stop after cancellation")
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"train"},
		{"runs", "list"},
		{"runs", "show"},
		{"runs", "insight"},
		{"config", "init"},
		{"config", "show"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found: %v", path, err)
		}
	}
}
