package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the key bindings of the dashboard
type keyMap struct {
	Start         key.Binding
	Stop          key.Binding
	Reset         key.Binding
	Insight       key.Binding
	ExploreUp     key.Binding
	ExploreDown   key.Binding
	LearnUp       key.Binding
	LearnDown     key.Binding
	EarlyStopping key.Binding
	PatienceUp    key.Binding
	PatienceDown  key.Binding
	Algorithm     key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Start: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s", "start"),
		),
		Stop: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "stop"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Insight: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "insight"),
		),
		ExploreUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "explore more"),
		),
		ExploreDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "explore less"),
		),
		LearnUp: key.NewBinding(
			key.WithKeys(">", "."),
			key.WithHelp(">", "learning rate up"),
		),
		LearnDown: key.NewBinding(
			key.WithKeys("<", ","),
			key.WithHelp("<", "learning rate down"),
		),
		EarlyStopping: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "early stopping"),
		),
		PatienceUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "patience +1"),
		),
		PatienceDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "patience -1"),
		),
		Algorithm: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "algorithm"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Reset, k.Insight, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Reset, k.Insight},
		{k.ExploreUp, k.ExploreDown, k.LearnUp, k.LearnDown, k.Algorithm},
		{k.EarlyStopping, k.PatienceUp, k.PatienceDown},
		{k.Help, k.Quit},
	}
}
