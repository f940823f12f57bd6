package experiment

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/agentx/environment"
	"github.com/samuelfneumann/agentx/environment/gridworld"
	"github.com/samuelfneumann/agentx/experiment/trackers"
	ts "github.com/samuelfneumann/agentx/timestep"
)

// greedyEpisodeReturn is the return of the greedy path from the origin to
// (8, 8) on the default grid: 15 progress steps and the goal
const greedyEpisodeReturn = 15*0.9 + 100

// greedyEpisodeLength is the number of steps of the greedy path
const greedyEpisodeLength = 16

func newTestEngine(t *testing.T, explorationRate, logSampleRate float64,
	seed uint64) *Engine {
	t.Helper()

	c := DefaultConfig()
	c.ExplorationRate = explorationRate
	e, err := NewGridEngine(DefaultGrid(), gridworld.DefaultRewards(), c,
		logSampleRate, seed)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.now = func() time.Time { return time.Unix(0, 0) }
	return e
}

func TestEngineGreedyEpisode(t *testing.T) {
	e := newTestEngine(t, 0, 0, 1)
	agent := e.Start()
	agent.Status = Training

	var completed *trackers.MetricsPoint
	for i := 1; i <= greedyEpisodeLength; i++ {
		result := e.Step(agent, 0)
		agent = result.Agent

		if i < greedyEpisodeLength && result.Completed != nil {
			t.Fatalf("episode completed early on step %d", i)
		}
		completed = result.Completed
	}

	if completed == nil {
		t.Fatal("greedy episode did not complete")
	}
	if completed.Episode != 1 {
		t.Errorf("completed episode = %d, want 1", completed.Episode)
	}
	if math.Abs(completed.Reward-greedyEpisodeReturn) > 1e-9 {
		t.Errorf("episode return = %v, want %v", completed.Reward,
			greedyEpisodeReturn)
	}

	want := AgentState{
		Direction: environment.Right,
		Status:    Training,
		Episode:   2,
	}
	if diff := cmp.Diff(want, agent); diff != "" {
		t.Errorf("rolled over agent mismatch (-want +got):\n%s", diff)
	}

	history := e.Metrics().Points()
	if diff := cmp.Diff([]trackers.MetricsPoint{*completed}, history,
		cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("metrics history mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{greedyEpisodeLength},
		e.EpisodeLengths().Lengths()); diff != "" {
		t.Errorf("episode lengths mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineGreedyStepAccumulates(t *testing.T) {
	e := newTestEngine(t, 0, 0, 1)
	agent := e.Start()

	agent = e.Step(agent, 0).Agent
	agent = e.Step(agent, 0).Agent

	if agent.Position != (environment.Position{X: 2, Y: 0}) {
		t.Errorf("position = %v, want (2, 0)", agent.Position)
	}
	if math.Abs(agent.CurrentReward-0.9) > 1e-9 {
		t.Errorf("current reward = %v, want 0.9", agent.CurrentReward)
	}
	if math.Abs(agent.TotalReward-1.8) > 1e-9 {
		t.Errorf("total reward = %v, want 1.8", agent.TotalReward)
	}
}

func TestEngineCollisionRevertsPosition(t *testing.T) {
	e := newTestEngine(t, 0, 0, 1)

	// The greedy move from (3, 4) is right, into the obstacle at (4, 4)
	prev := e.Start()
	prev.Position = environment.Position{X: 3, Y: 4}
	prev.TotalReward = 10
	prev.Direction = environment.Down

	result := e.Step(prev, 0)
	if result.Agent.Position != prev.Position {
		t.Errorf("position = %v, want %v", result.Agent.Position,
			prev.Position)
	}
	if result.Agent.Direction != environment.Right {
		t.Errorf("direction = %v, want right", result.Agent.Direction)
	}
	if result.Agent.CurrentReward != -5 || result.Agent.TotalReward != 5 {
		t.Errorf("rewards = %v / %v, want -5 / 5",
			result.Agent.CurrentReward, result.Agent.TotalReward)
	}
	if !result.TimeStep.Collided {
		t.Error("timestep not marked as collided")
	}
}

func TestEngineStaysInBounds(t *testing.T) {
	e := newTestEngine(t, 1, 0, 3)
	agent := e.Start()
	size := DefaultGrid().Size

	for i := 0; i < 5000; i++ {
		agent = e.Step(agent, 1).Agent
		if agent.X < 0 || agent.X >= size || agent.Y < 0 || agent.Y >= size {
			t.Fatalf("agent left the grid at step %d: %v", i, agent.Position)
		}
		if e.Environment().IsObstacle(agent.Position) {
			t.Fatalf("agent entered an obstacle at step %d: %v", i,
				agent.Position)
		}
	}
}

func TestEngineLogSampling(t *testing.T) {
	never := newTestEngine(t, 0, 0, 1)
	agent := never.Start()
	for i := 0; i < 100; i++ {
		result := never.Step(agent, 0)
		if result.Log != nil {
			t.Fatalf("log emitted with sample rate 0: %+v", result.Log)
		}
		agent = result.Agent
	}

	always := newTestEngine(t, 0, 1, 1)
	result := always.Step(always.Start(), 0)
	if result.Log == nil {
		t.Fatal("no log emitted with sample rate 1")
	}
	if result.Log.Action != "MOVE_RIGHT" || result.Log.State != "(1, 0)" {
		t.Errorf("log = %+v, want MOVE_RIGHT at (1, 0)", result.Log)
	}
	if math.Abs(result.Log.Reward-0.9) > 1e-9 {
		t.Errorf("log reward = %v, want 0.9", result.Log.Reward)
	}
}

func TestEngineLogSampleRate(t *testing.T) {
	e := newTestEngine(t, 0.1, DefaultLogSampleRate, 11)
	agent := e.Start()

	n, logged := 5000, 0
	for i := 0; i < n; i++ {
		result := e.Step(agent, 0.1)
		if result.Log != nil {
			logged++
		}
		agent = result.Agent
	}

	if frac := float64(logged) / float64(n); frac < 0.17 || frac > 0.23 {
		t.Errorf("logged fraction = %.3f, want ~%v", frac,
			DefaultLogSampleRate)
	}
}

func TestEngineSeededTrajectories(t *testing.T) {
	run := func() []StepResult {
		e := newTestEngine(t, 0.3, DefaultLogSampleRate, 42)
		agent := e.Start()
		results := make([]StepResult, 0, 500)
		for i := 0; i < 500; i++ {
			result := e.Step(agent, 0.3)
			agent = result.Agent
			results = append(results, result)
		}
		return results
	}

	// TimeSteps hold unexported state and are covered by the agent states
	ignore := cmpopts.IgnoreFields(StepResult{}, "TimeStep")
	if diff := cmp.Diff(run(), run(), ignore); diff != "" {
		t.Errorf("equal seeds diverged (-first +second):\n%s", diff)
	}
}

func TestEngineReset(t *testing.T) {
	e := newTestEngine(t, 0, 0, 1)
	agent := e.Start()
	for i := 0; i < 2*greedyEpisodeLength+3; i++ {
		agent = e.Step(agent, 0).Agent
	}
	if e.Metrics().Len() != 2 {
		t.Fatalf("metrics len = %d, want 2", e.Metrics().Len())
	}

	e.Reset()
	if e.Metrics().Len() != 0 || len(e.EpisodeLengths().Lengths()) != 0 {
		t.Error("reset did not clear tracked data")
	}
	if e.Environment().Position() != (environment.Position{}) {
		t.Errorf("position after reset = %v", e.Environment().Position())
	}

	// A fresh episode is tracked from its first step after a reset
	agent = e.Start()
	for i := 0; i < greedyEpisodeLength; i++ {
		agent = e.Step(agent, 0).Agent
	}
	if e.Metrics().Len() != 1 {
		t.Errorf("metrics len = %d, want 1", e.Metrics().Len())
	}
}

// scriptedPolicy replays a fixed sequence of directions, ignoring the
// TimeStep it is shown
type scriptedPolicy struct {
	moves   []environment.Direction
	next    int
	epsilon float64
	resets  int
}

func (p *scriptedPolicy) SelectAction(ts.TimeStep) environment.Direction {
	d := p.moves[p.next%len(p.moves)]
	p.next++
	return d
}

func (p *scriptedPolicy) SetEpsilon(e float64) { p.epsilon = e }
func (p *scriptedPolicy) Epsilon() float64     { return p.epsilon }
func (p *scriptedPolicy) Reset()               { p.resets++ }

func TestEngineDrivesAnyExplorer(t *testing.T) {
	g := Grid{Size: 3, Target: environment.Position{X: 0, Y: 2}}
	env, err := g.Build(gridworld.DefaultRewards(), 0.99)
	if err != nil {
		t.Fatalf("build grid: %v", err)
	}

	p := &scriptedPolicy{moves: []environment.Direction{environment.Down}}
	e := NewEngine(env, p, g.Target, 0, rand.NewSource(1))
	if e.Target() != g.Target {
		t.Errorf("target = %v, want %v", e.Target(), g.Target)
	}

	agent := e.Start()
	agent = e.Step(agent, 0.3).Agent
	if p.epsilon != 0.3 {
		t.Errorf("exploration rate passed to policy = %v, want 0.3",
			p.epsilon)
	}
	if agent.Position != (environment.Position{X: 0, Y: 1}) {
		t.Errorf("position after scripted move = %v", agent.Position)
	}

	resets := p.resets
	result := e.Step(agent, 0.3)
	if result.Completed == nil {
		t.Fatal("reaching the target did not complete the episode")
	}
	if p.resets != resets+1 {
		t.Errorf("policy reset %d times at the episode end, want 1",
			p.resets-resets)
	}
}

func TestEngineSavesRegisteredTrackers(t *testing.T) {
	e := newTestEngine(t, 0, 0, 1)
	filename := filepath.Join(t.TempDir(), "lengths.bin")
	e.Register(trackers.NewEpisodeLength(filename))

	agent := e.Start()
	for i := 0; i < 2*greedyEpisodeLength; i++ {
		agent = e.Step(agent, 0).Agent
	}
	if err := e.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	lengths, err := trackers.LoadEpisodeLengths(filename)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []int{greedyEpisodeLength, greedyEpisodeLength}
	if diff := cmp.Diff(want, lengths); diff != "" {
		t.Errorf("saved lengths mismatch (-want +got):\n%s", diff)
	}

	// Reset reaches registered Trackers too
	e.Reset()
	agent = e.Start()
	for i := 0; i < greedyEpisodeLength; i++ {
		agent = e.Step(agent, 0).Agent
	}
	if err := e.Save(); err != nil {
		t.Fatalf("save after reset: %v", err)
	}
	lengths, err = trackers.LoadEpisodeLengths(filename)
	if err != nil || len(lengths) != 1 {
		t.Errorf("lengths after reset and one episode = %v, %v", lengths, err)
	}
}

func TestEngineSaveJoinsErrors(t *testing.T) {
	e := newTestEngine(t, 0, 0, 1)
	missing := filepath.Join(t.TempDir(), "missing", "lengths.bin")
	e.Register(trackers.NewEpisodeLength(missing))
	if err := e.Save(); err == nil {
		t.Error("save into a missing directory succeeded")
	}
}
