package experiment

import (
	"errors"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/agentx/agent"
	"github.com/samuelfneumann/agentx/agent/policy"
	"github.com/samuelfneumann/agentx/environment"
	"github.com/samuelfneumann/agentx/environment/gridworld"
	"github.com/samuelfneumann/agentx/experiment/actionlog"
	"github.com/samuelfneumann/agentx/experiment/trackers"
	ts "github.com/samuelfneumann/agentx/timestep"
)

// DefaultLogSampleRate is the default probability that a step is written
// to the action log
const DefaultLogSampleRate = 0.2

// StepResult is the outcome of a single Engine step
type StepResult struct {
	// Agent is the agent state after the step, rolled over to a new
	// episode if the target was reached
	Agent AgentState

	// TimeStep is the environment transition the step produced
	TimeStep ts.TimeStep

	// Completed is the metrics point of the episode finished on this
	// step, or nil if the episode continues
	Completed *trackers.MetricsPoint

	// Log is the sampled action log entry of this step, or nil
	Log *actionlog.Entry
}

// Engine steps an agent through a Grid one tick at a time.
//
// Each step selects an action from an Explorer, applies it to the Grid
// and sends the resulting TimeStep to every registered Tracker. When the target is reached, the
// episode's MetricsPoint is recorded and the agent is rolled over to the
// start of the next episode.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	env       environment.Grid
	policy    agent.Explorer
	target    environment.Position
	metrics   *trackers.Metrics
	lengths   *trackers.EpisodeLength
	trackers  []trackers.Tracker // Registered with a save location
	logSample distuv.Bernoulli
	now       func() time.Time
}

// NewEngine creates and returns a new Engine moving p through env toward
// target. Steps are written to the action log with probability
// logSampleRate, sampled with source. The metrics history and episode
// lengths are always tracked; other Trackers are added with Register.
func NewEngine(env environment.Grid, p agent.Explorer,
	target environment.Position, logSampleRate float64,
	source rand.Source) *Engine {
	e := &Engine{
		env:       env,
		policy:    p,
		target:    target,
		metrics:   trackers.NewMetrics(""),
		lengths:   trackers.NewEpisodeLength(""),
		logSample: distuv.Bernoulli{P: logSampleRate, Src: source},
		now:       time.Now,
	}
	e.Reset()
	return e
}

// NewGridEngine builds the gridworld described by g with reward scheme r
// and returns an Engine on it. The policy and the log sampler draw from
// separate sources seeded from seed, so equal seeds produce equal
// trajectories.
func NewGridEngine(g Grid, r gridworld.Rewards, c Config,
	logSampleRate float64, seed uint64) (*Engine, error) {
	env, err := g.Build(r, c.DiscountFactor)
	if err != nil {
		return nil, err
	}

	c = c.Clamp()
	p := policy.NewEGreedy(c.ExplorationRate, g.Target, rand.NewSource(seed))
	return NewEngine(env, p, g.Target, logSampleRate,
		rand.NewSource(seed+1)), nil
}

// Register registers a Tracker with the Engine so that data generated
// during training can be tracked and saved. The Tracker receives
// TimeSteps from the next step onward, so Trackers which require whole
// episodes should be registered before training starts.
func (e *Engine) Register(t trackers.Tracker) {
	e.trackers = append(e.trackers, t)
}

// Environment returns the Grid the Engine steps through
func (e *Engine) Environment() environment.Grid {
	return e.env
}

// Metrics returns the metrics history of the Engine
func (e *Engine) Metrics() *trackers.Metrics {
	return e.metrics
}

// EpisodeLengths returns the episode lengths tracked by the Engine
func (e *Engine) EpisodeLengths() *trackers.EpisodeLength {
	return e.lengths
}

// Target returns the cell the agent is trained to reach
func (e *Engine) Target() environment.Position {
	return e.target
}

// Start returns the initial agent state of every episode
func (e *Engine) Start() AgentState {
	return NewAgentState(e.env.Start())
}

// Step advances the agent one tick from prev. With probability
// explorationRate the action is chosen uniformly at random, otherwise it
// is the greedy action toward the target.
//
// If prev is not at the gridworld's current position, the gridworld is
// moved to prev before stepping. The episode and return of prev are
// carried over; the Engine is expected to be stepped with the Agent of
// its previous StepResult.
func (e *Engine) Step(prev AgentState, explorationRate float64) StepResult {
	if prev.Position != e.env.Position() {
		e.env.SetPosition(prev.Position)
	}

	// Select action, step in environment
	e.policy.SetEpsilon(explorationRate)
	action := e.policy.SelectAction(e.env.CurrentTimeStep())
	step, done := e.env.Step(action)

	// Cache the environment step in each Tracker
	e.track(step)

	next := prev
	next.Position = environment.FromVec(step.Observation)
	next.Direction = action
	next.CurrentReward = step.Reward
	next.TotalReward = prev.TotalReward + step.Reward

	result := StepResult{TimeStep: step}
	if e.logSample.Rand() == 1 {
		result.Log = &actionlog.Entry{
			Timestamp: e.now(),
			Action:    action.Action(),
			State:     next.Position.String(),
			Reward:    step.Reward,
			Kind:      actionlog.Default,
		}
	}

	if done {
		point := trackers.NewMetricsPoint(prev.Episode, next.TotalReward)
		result.Completed = &point

		// Start the next episode
		e.track(e.env.Reset())
		e.policy.Reset()
		next = e.Start()
		next.Status = prev.Status
		next.Episode = prev.Episode + 1
	}

	result.Agent = next
	return result
}

// Reset forgets all tracked data and returns the gridworld to its start
func (e *Engine) Reset() {
	e.metrics.Reset()
	e.lengths.Reset()
	for _, tracker := range e.trackers {
		tracker.Reset()
	}
	e.policy.Reset()
	e.track(e.env.Reset())
}

// Save saves the data cached by the registered Trackers to disk. The
// metrics history and episode lengths are persisted separately, through
// Metrics and EpisodeLengths.
func (e *Engine) Save() error {
	var errs []error
	for _, tracker := range e.trackers {
		if err := tracker.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// track tracks the current timestep by caching its data in each Tracker
func (e *Engine) track(t ts.TimeStep) {
	e.metrics.Track(t)
	e.lengths.Track(t)
	for _, tracker := range e.trackers {
		tracker.Track(t)
	}
}
