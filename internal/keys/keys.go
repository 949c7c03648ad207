package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Filter cycling
	CycleType     key.Binding
	CycleTicket   key.Binding
	CycleSeverity key.Binding

	// Sort columns
	SortSeverity  key.Binding
	SortFrequency key.Binding
	SortTitle     key.Binding
	SortUpdated   key.Binding

	// Actions
	CreateTicket key.Binding
	Integrations key.Binding
	Settings     key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "expand reports"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		CycleType: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "cycle type filter"),
		),
		CycleTicket: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle ticket filter"),
		),
		CycleSeverity: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cycle severity filter"),
		),
		SortSeverity: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "sort by severity"),
		),
		SortFrequency: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "sort by frequency"),
		),
		SortTitle: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "sort by title"),
		),
		SortUpdated: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "sort by updated"),
		),
		CreateTicket: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "create jira ticket"),
		),
		Integrations: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "integrations"),
		),
		Settings: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "settings"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Refresh,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Refresh, k.Help, k.Integrations, k.Settings},
		{k.CycleType, k.CycleTicket, k.CycleSeverity},
		{k.SortSeverity, k.SortFrequency, k.SortTitle, k.SortUpdated},
		{k.CreateTicket},
	}
}
