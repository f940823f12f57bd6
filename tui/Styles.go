package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	panel    lipgloss.Style
	heading  lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	muted    lipgloss.Style
	idle     lipgloss.Style
	training lipgloss.Style
	finished lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	danger   lipgloss.Style
	barFull  lipgloss.Style
	barEmpty lipgloss.Style
	agent    lipgloss.Style
	target   lipgloss.Style
	obstacle lipgloss.Style
}

func newStyles() styles {
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1),
		heading: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			MarginBottom(1),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		idle: badge.
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("245")),
		training: badge.
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("39")),
		finished: badge.
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("34")),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),
		warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		barFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),
		barEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		agent: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),
		target: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")).
			Bold(true),
		obstacle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}
