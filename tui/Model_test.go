package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/samuelfneumann/agentx/agent"
	"github.com/samuelfneumann/agentx/config"
	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/insight"
)

type staticGenerator string

func (g staticGenerator) Generate(context.Context, string, string) (string,
	error) {
	return string(g), nil
}

func newTestModel(t *testing.T, opts Options) (*Model,
	*experiment.ManualScheduler, *experiment.Session) {
	t.Helper()
	cfg := config.Default()
	cfg.Training.ExplorationRate = 0
	cfg.Training.EarlyStoppingPatience = MinPatience

	sched := experiment.NewManualScheduler()
	s, err := cfg.NewSession(sched, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(s.Close)
	return New(s, opts), sched, s
}

func press(m *Model, keys string) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	return cmd
}

func TestStartStopReset(t *testing.T) {
	m, sched, s := newTestModel(t, Options{})

	press(m, "s")
	if got := s.Snapshot().Agent.Status; got != experiment.Training {
		t.Fatalf("status after start = %v, want TRAINING", got)
	}
	sched.Fire(3)

	press(m, "p")
	snap := s.Snapshot()
	if snap.Agent.Status != experiment.Idle || snap.Agent.X != 3 {
		t.Errorf("after stop: status %v at %v, want IDLE at x=3",
			snap.Agent.Status, snap.Agent.Position)
	}

	press(m, "r")
	if got := s.Snapshot().Agent.Position; got != (experiment.DefaultGrid().Start) {
		t.Errorf("position after reset = %v", got)
	}
}

func TestConfigKeys(t *testing.T) {
	m, _, s := newTestModel(t, Options{})

	press(m, "+")
	press(m, "+")
	if got := s.Config().ExplorationRate; got != 0.1 {
		t.Errorf("exploration after two increments = %v, want 0.1", got)
	}
	for i := 0; i < 5; i++ {
		press(m, "-")
	}
	if got := s.Config().ExplorationRate; got != 0 {
		t.Errorf("exploration = %v, want clipped to 0", got)
	}

	press(m, ">")
	if got := s.Config().LearningRate; got != 0.0011 {
		t.Errorf("learning rate after increment = %v, want 0.0011", got)
	}
	for i := 0; i < 30; i++ {
		press(m, "<")
	}
	if got := s.Config().LearningRate; got != LearningRange.Min {
		t.Errorf("learning rate = %v, want floor %v", got,
			LearningRange.Min)
	}

	press(m, "[")
	if got := s.Config().EarlyStoppingPatience; got != MinPatience {
		t.Errorf("patience = %d, want floor %d", got, MinPatience)
	}
	press(m, "]")
	if got := s.Config().EarlyStoppingPatience; got != MinPatience+1 {
		t.Errorf("patience = %d, want %d", got, MinPatience+1)
	}

	press(m, "e")
	if s.Config().EarlyStopping {
		t.Error("early stopping still enabled after toggle")
	}

	press(m, "a")
	if got := s.Config().Algorithm; got != agent.PPO {
		t.Errorf("algorithm = %v, want PPO", got)
	}
}

func TestStepPatienceBounds(t *testing.T) {
	if got := stepPatience(MaxPatience, 1); got != MaxPatience {
		t.Errorf("stepPatience above max = %d", got)
	}
	if got := stepPatience(10, -1); got != 9 {
		t.Errorf("stepPatience(10, -1) = %d", got)
	}
}

func TestFinishedRunIsReported(t *testing.T) {
	var finished []experiment.Snapshot
	var started time.Time
	m, sched, _ := newTestModel(t, Options{
		OnFinish: func(s experiment.Snapshot, at time.Time) {
			finished = append(finished, s)
			started = at
		},
	})

	press(m, "s")
	m.Update(refreshMsg(time.Now()))
	sched.Fire(10000)
	m.Update(refreshMsg(time.Now()))
	m.Update(refreshMsg(time.Now()))

	if len(finished) != 1 {
		t.Fatalf("finished runs reported = %d, want 1", len(finished))
	}
	if finished[0].Agent.Status != experiment.Finished {
		t.Errorf("reported status = %v", finished[0].Agent.Status)
	}
	if started.IsZero() {
		t.Error("start time of the run not reported")
	}
	if !strings.Contains(m.View(), "FINISHED") {
		t.Error("view does not show the finished status")
	}
}

func TestInsight(t *testing.T) {
	analyst := insight.NewAnalyst(staticGenerator("Converging."), nil)
	m, sched, s := newTestModel(t, Options{Analyst: analyst})

	if cmd := press(m, "i"); cmd != nil {
		t.Error("insight requested without enough episodes")
	}

	press(m, "s")
	sched.Fire(10000)

	cmd := press(m, "i")
	if cmd == nil {
		t.Fatal("no insight request after a finished run")
	}
	m.Update(cmd())

	if got := s.Snapshot().Insight; got != "Converging." {
		t.Errorf("insight = %q", got)
	}
	if !strings.Contains(m.View(), "Converging.") {
		t.Error("view does not show the insight")
	}
}

func TestInsightUnavailable(t *testing.T) {
	m, _, _ := newTestModel(t, Options{Unavailable: "no API key"})
	press(m, "i")
	if !strings.Contains(m.View(), "no API key") {
		t.Error("view does not explain why insights are unavailable")
	}
}

func TestInitialView(t *testing.T) {
	m, _, _ := newTestModel(t, Options{})
	view := m.View()
	for _, want := range []string{"IDLE", "N/A", "Deep Q-Network (DQN)",
		"waiting for the first episode"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestQuit(t *testing.T) {
	m, _, s := newTestModel(t, Options{})
	press(m, "s")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("no command on quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key does not quit")
	}
	if got := s.Snapshot().Agent.Status; got != experiment.Idle {
		t.Errorf("status after quit = %v, want IDLE", got)
	}
}
