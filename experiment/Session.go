package experiment

import (
	"log/slog"
	"sync"
	"time"

	"github.com/samuelfneumann/agentx/experiment/actionlog"
	"github.com/samuelfneumann/agentx/experiment/checkpointer"
	"github.com/samuelfneumann/agentx/experiment/earlystop"
	"github.com/samuelfneumann/agentx/experiment/trackers"
)

// Snapshot is a copy of the state of a Session at one instant. Readers
// such as dashboards and progress bars only ever see Snapshots.
type Snapshot struct {
	Agent             AgentState
	Config            Config
	Grid              Grid
	Metrics           []trackers.MetricsPoint
	Logs              []actionlog.Entry // Newest first
	Convergence       earlystop.State
	StopReason        earlystop.Reason
	Insight           string
	MeanEpisodeLength float64
}

// Episodes returns the number of completed episodes
func (s Snapshot) Episodes() int {
	return len(s.Metrics)
}

// Stability returns the remaining patience as a percentage of the
// configured patience
func (s Snapshot) Stability() int {
	return s.Convergence.PatiencePercent(s.Config.EarlyStoppingPatience)
}

// Session is a single training session: the agent, its metrics history,
// its action log and its convergence state, driven by a Scheduler.
//
// A Session moves between three states. Start moves an Idle or Finished
// session to Training and Stop moves it back to Idle, keeping everything
// accumulated so far. While Training, the session moves itself to
// Finished once its convergence monitor runs out of patience. Reset
// moves any session to Idle and forgets everything.
//
// All methods are safe for concurrent use. The Scheduler's ticks are the
// only writer of training state; every other caller reads Snapshots.
type Session struct {
	mu          sync.Mutex
	config      Config
	agent       AgentState
	engine      *Engine
	log         *actionlog.Log
	monitor     *earlystop.Monitor
	stopReason  earlystop.Reason
	insight     string
	checkpoints []checkpointer.Checkpointer
	scheduler   Scheduler
	interval    time.Duration
	run         int // Incremented on every Start, so stale ticks are ignored
	done        chan struct{}
	closed      bool
	logger      *slog.Logger
}

// NewSession returns a new idle Session which steps engine every interval
// using scheduler, recording sampled actions in log. If logger is nil,
// nothing is logged.
func NewSession(c Config, engine *Engine, scheduler Scheduler,
	interval time.Duration, log *actionlog.Log, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if log == nil {
		log = actionlog.New(actionlog.DefaultCapacity)
	}

	c = c.Clamp()
	done := make(chan struct{})
	close(done)

	return &Session{
		config:    c,
		agent:     engine.Start(),
		engine:    engine,
		log:       log,
		monitor:   earlystop.New(c.EarlyStoppingPatience),
		scheduler: scheduler,
		interval:  interval,
		done:      done,
		logger:    logger,
	}
}

// AddCheckpointer registers c to be called with every completed episode
func (s *Session) AddCheckpointer(c checkpointer.Checkpointer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints = append(s.checkpoints, c)
}

// CheckpointMetrics saves the metrics history every n completed episodes
// to the files named by filename. Checkpoints run inside a tick, so a
// failed save is logged and training continues.
func (s *Session) CheckpointMetrics(n int, filename func() string) {
	s.AddCheckpointer(checkpointer.NewNEpisode(n, s.engine.Metrics(),
		filename))
}

// Start starts or restarts training. The convergence monitor is reset to
// full patience with no baseline, and any previous stop reason is
// cleared. Calling Start while training, or after Close, does nothing.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.agent.Status == Training {
		return
	}

	s.stopReason = earlystop.None
	s.monitor.Reset(s.config.EarlyStoppingPatience)
	s.agent.Status = Training
	s.done = make(chan struct{})

	s.run++
	run := s.run
	s.scheduler.Start(s.interval, func() { s.tick(run) })

	s.logger.Info("training started",
		"episode", s.agent.Episode,
		"algorithm", s.config.Algorithm,
		"patience", s.config.EarlyStoppingPatience)
}

// Stop stops training, keeping the agent, metrics and logs so that
// training can be resumed with Start. Calling Stop when not training
// does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agent.Status != Training {
		return
	}
	s.scheduler.Cancel()
	s.agent.Status = Idle
	close(s.done)

	s.logger.Info("training stopped", "episode", s.agent.Episode)
}

// Reset stops training and forgets everything: the agent returns to its
// start on the first episode, and the metrics history, action log,
// convergence state, stop reason and insight are cleared
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.Cancel()
	if s.agent.Status == Training {
		close(s.done)
	}

	s.engine.Reset()
	s.agent = s.engine.Start()
	s.log.Clear()
	s.monitor.Reset(s.config.EarlyStoppingPatience)
	s.stopReason = earlystop.None
	s.insight = ""

	s.logger.Info("session reset")
}

// Close stops training and cancels any pending tick. A closed Session
// cannot be started again.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.scheduler.Cancel()
	if s.agent.Status == Training {
		s.agent.Status = Idle
		close(s.done)
	}
}

// Done returns a channel which is closed when the current training run
// stops, finishes or is reset. If the session is not training, the
// returned channel is already closed.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Config returns the current configuration
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// SetConfig replaces the configuration. Values are clamped into their
// documented ranges. The new configuration takes effect on the next
// tick; a lower patience immediately caps the remaining patience.
func (s *Session) SetConfig(c Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = c.Clamp()
	s.monitor.Limit(s.config.EarlyStoppingPatience)
}

// SetInsight records the most recent generated insight
func (s *Session) SetInsight(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insight = text
}

// Snapshot returns a copy of the current state of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Agent:             s.agent,
		Config:            s.config,
		Grid:              s.grid(),
		Metrics:           s.engine.Metrics().Points(),
		Logs:              s.log.Entries(),
		Convergence:       s.monitor.State(),
		StopReason:        s.stopReason,
		Insight:           s.insight,
		MeanEpisodeLength: s.engine.EpisodeLengths().Mean(),
	}
}

// MetricsSince returns a copy of the metrics points after the first n,
// for chart sinks which have already drawn n points
func (s *Session) MetricsSince(n int) []trackers.MetricsPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Metrics().Since(n)
}

// SaveMetrics saves the metrics history to filename
func (s *Session) SaveMetrics(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Metrics().SaveTo(filename)
}

// Track registers t to receive every TimeStep of the session from the
// next tick on. Trackers which need whole episodes should be registered
// before Start.
func (s *Session) Track(t trackers.Tracker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Register(t)
}

// SaveTrackers saves the data of every Tracker registered with Track
func (s *Session) SaveTrackers() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Save()
}

// grid describes the layout of the session's gridworld
func (s *Session) grid() Grid {
	env := s.engine.Environment()
	return Grid{
		Size:      env.Size(),
		Start:     env.Start(),
		Target:    s.engine.Target(),
		Obstacles: env.Obstacles(),
	}
}

// tick advances training by one step of the engine and evaluates the
// convergence monitor whenever an episode completes
func (s *Session) tick(run int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run || s.agent.Status != Training {
		return
	}

	result := s.engine.Step(s.agent, s.config.ExplorationRate)
	s.agent = result.Agent
	if result.Log != nil {
		s.log.Add(*result.Log)
	}
	if result.Completed == nil {
		return
	}

	point := *result.Completed
	for _, c := range s.checkpoints {
		if err := c.Checkpoint(point); err != nil {
			s.logger.Warn("checkpoint failed", "episode", point.Episode,
				"error", err)
		}
	}

	decision := s.monitor.Observe(s.engine.Metrics().Rewards(),
		s.config.EarlyStopping, s.config.EarlyStoppingPatience)
	s.logger.Debug("episode completed",
		"episode", point.Episode,
		"reward", point.Reward,
		"patience_left", s.monitor.State().PatienceLeft)

	if decision.Stop {
		s.finish(decision)
	}
}

// finish moves a training session to Finished for the given reason
func (s *Session) finish(d earlystop.Decision) {
	s.scheduler.Cancel()
	s.agent.Status = Finished
	s.stopReason = d.Reason

	kind := actionlog.Success
	if d.Reason == earlystop.Degradation {
		kind = actionlog.Warning
	}
	s.log.Add(actionlog.Entry{
		Timestamp: s.engine.now(),
		Action:    "AUTO_STOP",
		State:     d.Reason.Label(),
		Kind:      kind,
	})
	close(s.done)

	s.logger.Info("training auto-stopped",
		"episode", s.agent.Episode,
		"reason", d.Reason.String(),
		"improvement", d.Improvement)
}
