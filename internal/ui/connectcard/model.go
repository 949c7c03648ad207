// Package connectcard renders the integrations view: one card per
// provider showing its connection state with connect and refresh
// actions.
package connectcard

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/killthenoise/killthenoise/internal/connect"
	"github.com/killthenoise/killthenoise/internal/keys"
	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/theme"
)

// CloseMsg is sent when the user leaves the integrations view.
type CloseMsg struct{}

// providerNames maps providers to their display names.
var providerNames = map[model.Provider]string{
	model.ProviderSlack:   "Slack",
	model.ProviderHubSpot: "HubSpot",
	model.ProviderJira:    "Jira",
}

// Model is the integrations view component.
type Model struct {
	controllers map[model.Provider]*connect.Controller
	order       []model.Provider
	keys        *keys.KeyMap
	cursor      int
	width       int
	height      int
}

// New creates the integrations view over the given controllers.
func New(controllers map[model.Provider]*connect.Controller, k *keys.KeyMap, width, height int) Model {
	order := []model.Provider{
		model.ProviderSlack,
		model.ProviderHubSpot,
		model.ProviderJira,
	}
	return Model{
		controllers: controllers,
		order:       order,
		keys:        k,
		width:       width,
		height:      height,
	}
}

// Init checks every provider's auth status.
func (m Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.order))
	for _, p := range m.order {
		if c := m.controllers[p]; c != nil {
			cmds = append(cmds, c.CheckAuth(false))
		}
	}
	return tea.Batch(cmds...)
}

// Update handles messages for the integrations view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.order)-1 {
				m.cursor++
			}
			return m, nil

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case key.Matches(msg, m.keys.Select):
			c := m.selected()
			if c == nil {
				return m, nil
			}
			snap := c.Snapshot()
			if snap.State == connect.StateAuthenticated {
				return m, nil
			}
			return m, c.Connect()

		case key.Matches(msg, m.keys.Refresh):
			c := m.selected()
			if c == nil {
				return m, nil
			}
			snap := c.Snapshot()
			if snap.Status != nil && snap.Status.CanRefresh {
				return m, c.RefreshToken()
			}
			return m, c.CheckAuth(false)

		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}

	return m, nil
}

// selected returns the controller under the cursor.
func (m Model) selected() *connect.Controller {
	if m.cursor < 0 || m.cursor >= len(m.order) {
		return nil
	}
	return m.controllers[m.order[m.cursor]]
}

// View renders the provider cards.
func (m Model) View() string {
	cards := make([]string, 0, len(m.order))
	for i, p := range m.order {
		c := m.controllers[p]
		if c == nil {
			continue
		}
		cards = append(cards, m.renderCard(p, c.Snapshot(), i == m.cursor))
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, cards...))
}

// renderCard draws one provider card.
func (m Model) renderCard(p model.Provider, snap connect.Snapshot, selected bool) string {
	style := theme.PanelStyle.Width(m.width - 6)
	if selected {
		style = style.BorderForeground(theme.ColorBlue)
	}

	var b strings.Builder
	name := lipgloss.NewStyle().Bold(true).Render(providerNames[p])
	b.WriteString(name)
	b.WriteString("  ")
	b.WriteString(m.renderState(snap))
	b.WriteString("\n")

	if snap.Status != nil {
		if snap.Status.Team != "" {
			b.WriteString(theme.DimmedStyle.Render("Workspace: " + snap.Status.Team))
			b.WriteString("\n")
		}
		if snap.Status.Domain != "" {
			b.WriteString(theme.DimmedStyle.Render("Domain: " + snap.Status.Domain))
			b.WriteString("\n")
		}
		if len(snap.Status.Scopes) > 0 {
			b.WriteString(theme.DimmedStyle.Render(
				"Scopes: " + strings.Join(snap.Status.Scopes, ", ")))
			b.WriteString("\n")
		}
	}

	if snap.ErrorMsg != "" {
		b.WriteString(theme.ErrorStyle.Render(snap.ErrorMsg))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHint(snap))

	return style.Render(b.String())
}

// renderState draws the colored connection state label.
func (m Model) renderState(snap connect.Snapshot) string {
	switch snap.State {
	case connect.StateAuthenticated:
		return theme.ConnectionStyle(true).Render("● connected")
	case connect.StateChecking:
		return theme.DimmedStyle.Render("checking...")
	case connect.StatePolling:
		return theme.ConnectionStyle(false).Render("◌ waiting for authorization...")
	case connect.StateError:
		return theme.ErrorStyle.Render("✗ error")
	default:
		return theme.ConnectionStyle(false).Render("○ not connected")
	}
}

// renderHint shows the action available for the card's current state.
func (m Model) renderHint(snap connect.Snapshot) string {
	switch snap.State {
	case connect.StateAuthenticated:
		if snap.Status != nil && snap.Status.CanRefresh {
			return theme.HelpStyle.Render("r refresh token")
		}
		return theme.HelpStyle.Render("connected")
	case connect.StatePolling:
		return theme.HelpStyle.Render("complete the authorization in your browser")
	default:
		return theme.HelpStyle.Render("enter to connect in browser")
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
