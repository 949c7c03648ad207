// Package helpview renders the keyboard reference: the application
// keymap's groups under named section headings, with a compact summary
// of the essential keys at the bottom.
package helpview

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/killthenoise/killthenoise/internal/keys"
	"github.com/killthenoise/killthenoise/internal/theme"
)

// sectionTitles names the groups returned by KeyMap.FullHelp, in order.
var sectionTitles = []string{"Navigate", "Views", "Filters", "Sorting", "Actions"}

// keyColumn is the width reserved for the key label so descriptions
// line up across sections.
const keyColumn = 10

// Model is the keyboard reference view.
type Model struct {
	keys    *keys.KeyMap
	summary help.Model
	width   int
	height  int
}

// New creates the keyboard reference view.
func New(k *keys.KeyMap, width, height int) Model {
	s := help.New()
	s.Width = width
	return Model{
		keys:    k,
		summary: s,
		width:   width,
		height:  height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the keyboard reference view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders every keymap group under its section heading.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Keyboard Reference"))
	b.WriteString("\n")

	for i, group := range m.keys.FullHelp() {
		title := "Other"
		if i < len(sectionTitles) {
			title = sectionTitles[i]
		}
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render(title))
		b.WriteString("\n")
		for _, binding := range group {
			b.WriteString(renderBinding(binding))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.summary.ShortHelpView(m.keys.ShortHelp()))

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(b.String())
}

// renderBinding draws one "key description" row.
func renderBinding(b key.Binding) string {
	h := b.Help()
	keyStyle := lipgloss.NewStyle().
		Foreground(theme.ColorBlue).
		Width(keyColumn)
	return keyStyle.Render(h.Key) + theme.DimmedStyle.Render(h.Desc)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.summary.Width = width - 4
}
