// Package tui implements the interactive training dashboard.
//
// The dashboard never touches training state directly: it polls
// Snapshots of a Session on every refresh and changes the Session only
// through its control methods.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/insight"
	"github.com/samuelfneumann/agentx/utils/floatutils"
	"gonum.org/v1/gonum/spatial/r1"
)

// Bounds of the settings adjustable from the dashboard
const (
	ExplorationStep = 0.05
	LearningStep    = 0.0001
	MinPatience     = 3
	MaxPatience     = 50
)

// LearningRange bounds the learning rate set from the dashboard
var LearningRange = r1.Interval{Min: 0.0001, Max: 0.01}

// Options configures a Model
type Options struct {
	// RefreshRate is the period between two redraws
	RefreshRate time.Duration

	// Analyst generates insights. If nil, insights are unavailable and
	// Unavailable is shown instead.
	Analyst     *insight.Analyst
	Unavailable string

	// InsightTimeout bounds a single insight request
	InsightTimeout time.Duration

	// OnFinish, if not nil, is called with the final Snapshot and the
	// start time of every training run which finishes on its own
	OnFinish func(s experiment.Snapshot, started time.Time)
}

type refreshMsg time.Time

type insightMsg struct {
	text string
	err  error
}

// Model is the bubbletea model of the dashboard
type Model struct {
	session *experiment.Session
	opts    Options
	snap    experiment.Snapshot
	keys    keyMap
	help    help.Model
	styles  styles
	status  string // Transient message shown above the help
	started time.Time
	width   int
	height  int
}

// New returns a dashboard for s
func New(s *experiment.Session, opts Options) *Model {
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = 100 * time.Millisecond
	}
	if opts.InsightTimeout <= 0 {
		opts.InsightTimeout = 30 * time.Second
	}
	return &Model{
		session: s,
		opts:    opts,
		snap:    s.Snapshot(),
		keys:    newKeyMap(),
		help:    help.New(),
		styles:  newStyles(),
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.opts.RefreshRate, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case refreshMsg:
		m.refresh()
		return m, m.tick()

	case insightMsg:
		m.finishInsight(msg)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

// refresh takes a new Snapshot and reports a run which finished since the
// previous one
func (m *Model) refresh() {
	prev := m.snap
	m.snap = m.session.Snapshot()

	if prev.Agent.Status == experiment.Training &&
		m.snap.Agent.Status == experiment.Finished {
		m.status = "Training finished: " + m.snap.StopReason.String()
		if m.opts.OnFinish != nil {
			m.opts.OnFinish(m.snap, m.started)
		}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Stop()
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Start):
		if m.session.Snapshot().Agent.Status != experiment.Training {
			m.started = time.Now()
		}
		m.session.Start()
		m.status = ""

	case key.Matches(msg, m.keys.Stop):
		m.session.Stop()

	case key.Matches(msg, m.keys.Reset):
		m.session.Reset()
		m.status = ""

	case key.Matches(msg, m.keys.Insight):
		return m.requestInsight()

	case key.Matches(msg, m.keys.ExploreUp):
		m.adjust(func(c *experiment.Config) {
			c.ExplorationRate = stepExploration(c.ExplorationRate,
				ExplorationStep)
		})

	case key.Matches(msg, m.keys.ExploreDown):
		m.adjust(func(c *experiment.Config) {
			c.ExplorationRate = stepExploration(c.ExplorationRate,
				-ExplorationStep)
		})

	case key.Matches(msg, m.keys.LearnUp):
		m.adjust(func(c *experiment.Config) {
			c.LearningRate = floatutils.Nudge(c.LearningRate, LearningStep,
				4, LearningRange)
		})

	case key.Matches(msg, m.keys.LearnDown):
		m.adjust(func(c *experiment.Config) {
			c.LearningRate = floatutils.Nudge(c.LearningRate, -LearningStep,
				4, LearningRange)
		})

	case key.Matches(msg, m.keys.EarlyStopping):
		m.adjust(func(c *experiment.Config) {
			c.EarlyStopping = !c.EarlyStopping
		})

	case key.Matches(msg, m.keys.PatienceUp):
		m.adjust(func(c *experiment.Config) {
			c.EarlyStoppingPatience = stepPatience(c.EarlyStoppingPatience, 1)
		})

	case key.Matches(msg, m.keys.PatienceDown):
		m.adjust(func(c *experiment.Config) {
			c.EarlyStoppingPatience = stepPatience(c.EarlyStoppingPatience, -1)
		})

	case key.Matches(msg, m.keys.Algorithm):
		m.adjust(func(c *experiment.Config) {
			c.Algorithm = c.Algorithm.Next()
		})
	}

	m.snap = m.session.Snapshot()
	return nil
}

// adjust applies f to the configuration of the session
func (m *Model) adjust(f func(*experiment.Config)) {
	c := m.session.Config()
	f(&c)
	m.session.SetConfig(c)
}

func stepExploration(rate, step float64) float64 {
	return floatutils.Nudge(rate, step, 2, floatutils.Unit)
}

func stepPatience(patience, step int) int {
	patience += step
	if patience < MinPatience {
		return MinPatience
	}
	if patience > MaxPatience {
		return MaxPatience
	}
	return patience
}

// requestInsight starts an insight request in the background
func (m *Model) requestInsight() tea.Cmd {
	if m.opts.Analyst == nil {
		m.status = m.opts.Unavailable
		if m.status == "" {
			m.status = insight.FallbackUnavailable
		}
		return nil
	}
	if m.opts.Analyst.Busy() {
		m.status = "Analysis already in progress..."
		return nil
	}

	snap := m.session.Snapshot()
	if len(snap.Metrics) < insight.MinEpisodes {
		m.status = "Insights need at least 5 completed episodes"
		return nil
	}

	m.status = "Analyzing training session..."
	analyst, timeout := m.opts.Analyst, m.opts.InsightTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := analyst.Analyze(ctx, snap.Metrics, snap.Config)
		return insightMsg{text: text, err: err}
	}
}

func (m *Model) finishInsight(msg insightMsg) {
	switch {
	case errors.Is(msg.err, insight.ErrBusy):
		m.status = "Analysis already in progress..."
	case errors.Is(msg.err, insight.ErrNotEnoughData):
		m.status = "Insights need at least 5 completed episodes"
	case msg.err != nil:
		m.status = msg.err.Error()
	default:
		m.session.SetInsight(msg.text)
		m.snap = m.session.Snapshot()
		m.status = ""
	}
}
