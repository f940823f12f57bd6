package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/experiment/actionlog"
	"github.com/samuelfneumann/agentx/render"
)

const (
	barWidth       = 20
	sparkWidth     = 60
	visibleEntries = 10
)

// View implements tea.Model
func (m *Model) View() string {
	s := m.snap

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.panel.Render(m.gridView(s)),
		m.styles.panel.Render(m.statsView(s)),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.panel.Render(m.logView(s)),
		m.styles.panel.Width(48).Render(m.insightView(s)),
	)

	var b strings.Builder
	b.WriteString(m.headerView(s))
	b.WriteString("\n")
	b.WriteString(top)
	b.WriteString("\n")
	b.WriteString(m.styles.panel.Render(m.chartView(s)))
	b.WriteString("\n")
	b.WriteString(bottom)
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.styles.warning.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) headerView(s experiment.Snapshot) string {
	badge := m.styles.idle
	switch s.Agent.Status {
	case experiment.Training:
		badge = m.styles.training
	case experiment.Finished:
		badge = m.styles.finished
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.title.Render("AgentX "),
		badge.Render(s.Agent.Status.String()),
		m.styles.muted.Render("  "+s.Config.Algorithm.Description()),
	)
}

func (m *Model) gridView(s experiment.Snapshot) string {
	var b strings.Builder
	b.WriteString(m.styles.heading.Render("Environment"))
	b.WriteString("\n")
	for _, r := range render.Grid(s.Agent, s.Grid) {
		switch r {
		case render.Obstacle:
			b.WriteString(m.styles.obstacle.Render(string(r)))
		case render.Target, render.Reached:
			b.WriteString(m.styles.target.Render(string(r)))
		case '^', 'v', '<', '>':
			b.WriteString(m.styles.agent.Render(string(r)))
		case render.Empty:
			b.WriteString(m.styles.muted.Render(string(r)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (m *Model) statsView(s experiment.Snapshot) string {
	avg := "N/A"
	if s.Convergence.HasAvg {
		avg = fmt.Sprintf("%.2f", s.Convergence.AvgReward)
	}
	best := "N/A"
	if s.Convergence.HasBaseline() {
		best = fmt.Sprintf("%.2f", s.Convergence.BestAvgReward)
	}
	early := "off"
	if s.Config.EarlyStopping {
		early = "on"
	}

	rows := [][2]string{
		{"Episode", fmt.Sprintf("%d", s.Agent.Episode)},
		{"Position", s.Agent.Position.String()},
		{"Step reward", fmt.Sprintf("%.2f", s.Agent.CurrentReward)},
		{"Episode return", fmt.Sprintf("%.2f", s.Agent.TotalReward)},
		{"Avg reward", avg},
		{"Best avg", best},
		{"Mean length", fmt.Sprintf("%.1f", s.MeanEpisodeLength)},
		{"Exploration", fmt.Sprintf("%.2f", s.Config.ExplorationRate)},
		{"Learning rate", fmt.Sprintf("%g", s.Config.LearningRate)},
		{"Discount", fmt.Sprintf("%g", s.Config.DiscountFactor)},
		{"Early stopping", early},
		{"Patience", fmt.Sprintf("%d / %d", s.Convergence.PatienceLeft,
			s.Config.EarlyStoppingPatience)},
	}

	var b strings.Builder
	b.WriteString(m.styles.heading.Render("Training"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(m.styles.label.Render(row[0]))
		b.WriteString(m.styles.value.Render(row[1]))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.label.Render("Stability"))
	b.WriteString(m.stabilityBar(s.Stability()))
	return b.String()
}

func (m *Model) stabilityBar(pct int) string {
	pct = max(0, min(pct, 100))
	filled := pct * barWidth / 100

	full := m.styles.barFull
	switch {
	case pct <= 30:
		full = m.styles.danger
	case pct <= 60:
		full = m.styles.warning
	}
	return full.Render(strings.Repeat("█", filled)) +
		m.styles.barEmpty.Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %d%%", pct)
}

func (m *Model) chartView(s experiment.Snapshot) string {
	rewards := make([]float64, len(s.Metrics))
	for i, p := range s.Metrics {
		rewards[i] = p.Reward
	}

	line := render.Sparkline(rewards, sparkWidth)
	if line == "" {
		line = m.styles.muted.Render("waiting for the first episode")
	} else {
		last := s.Metrics[len(s.Metrics)-1]
		line = m.styles.success.Render(line) + m.styles.muted.Render(
			fmt.Sprintf("  last %.1f", last.Reward))
	}
	return m.styles.heading.Render("Episode rewards") + "\n" + line
}

func (m *Model) logView(s experiment.Snapshot) string {
	var b strings.Builder
	b.WriteString(m.styles.heading.Render("Action log"))
	if len(s.Logs) == 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.muted.Render("no actions yet"))
	}
	for i, e := range s.Logs {
		if i == visibleEntries {
			break
		}
		style := m.styles.value
		switch e.Kind {
		case actionlog.Warning:
			style = m.styles.warning
		case actionlog.Success:
			style = m.styles.success
		}
		b.WriteString("\n")
		b.WriteString(m.styles.muted.Render(e.Timestamp.Format("15:04:05 ")))
		b.WriteString(style.Render(fmt.Sprintf("%-12s %-10s %+.1f", e.Action,
			e.State, e.Reward)))
	}
	return b.String()
}

func (m *Model) insightView(s experiment.Snapshot) string {
	text := s.Insight
	if text == "" {
		text = m.styles.muted.Render("press i for an analysis")
	}
	return m.styles.heading.Render("Insight") + "\n" + text
}
