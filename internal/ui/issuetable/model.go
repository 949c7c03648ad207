// Package issuetable renders the pre-clustered issue list with its
// filter and sort controls and the expandable report panel.
package issuetable

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/killthenoise/killthenoise/internal/issues"
	"github.com/killthenoise/killthenoise/internal/keys"
	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/prefs"
	"github.com/killthenoise/killthenoise/internal/theme"
)

// CreateTicketMsg is sent when the user asks to create a Jira ticket
// for the selected group.
type CreateTicketMsg struct {
	Group model.IssueGroup
}

// reportPanelHeight is the space reserved for the expanded report list.
const reportPanelHeight = 10

// Model is the issue table view component.
type Model struct {
	list     list.Model
	vm       *issues.ViewModel
	keys     *keys.KeyMap
	expanded bool
	width    int
	height   int
}

// New creates a new issue table model.
func New(vm *issues.ViewModel, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "AI-Detected Issues"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		vm:     vm,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns a command that starts the initial group fetch.
func (m Model) Init() tea.Cmd {
	return m.vm.FetchGroups(false)
}

// Reload rebuilds the list items from the view-model's derived state.
func (m *Model) Reload() tea.Cmd {
	visible := m.vm.Visible()
	items := make([]list.Item, len(visible))
	for i, g := range visible {
		items[i] = GroupItem{
			Group:     g,
			HasTicket: m.vm.Reports(g.ID).HasJiraTicket(),
		}
	}
	return m.list.SetItems(items)
}

// Update handles messages for the issue table view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case issues.GroupsLoadedMsg:
		cmd := m.Reload()
		return m, tea.Batch(cmd, m.vm.AutoLoadReports())

	case issues.ReportsLoadedMsg:
		cmd := m.Reload()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKeys processes filter, sort, and action keys.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(GroupItem)
		if !ok {
			return m, nil
		}
		if m.expanded {
			// When the panel shows a failed load, enter retries it.
			if m.vm.Reports(item.Group.ID).Error != "" {
				return m, m.vm.FetchReports(item.Group.ID)
			}
			m.expanded = false
			return m, nil
		}
		m.expanded = true
		return m, m.vm.FetchReports(item.Group.ID)

	case key.Matches(msg, m.keys.Back):
		if m.expanded {
			m.expanded = false
			return m, nil
		}

	case key.Matches(msg, m.keys.CreateTicket):
		item, ok := m.list.SelectedItem().(GroupItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return CreateTicketMsg{Group: item.Group}
		}

	case key.Matches(msg, m.keys.CycleType):
		p := m.vm.Preferences()
		_ = m.vm.SetTypeFilter(p.TypeFilter.Next())
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.CycleTicket):
		p := m.vm.Preferences()
		_ = m.vm.SetTicketFilter(p.TicketFilter.Next())
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.CycleSeverity):
		p := m.vm.Preferences()
		_ = m.vm.SetSeverityFilter(p.SeverityFilter.Next())
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.SortSeverity):
		_ = m.vm.SetSort(prefs.SortSeverity)
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.SortFrequency):
		_ = m.vm.SetSort(prefs.SortFrequency)
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.SortTitle):
		_ = m.vm.SetSort(prefs.SortTitle)
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.SortUpdated):
		_ = m.vm.SetSort(prefs.SortUpdatedAt)
		cmd := m.Reload()
		return m, cmd
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SelectedGroup returns the group under the cursor, if any.
func (m Model) SelectedGroup() (model.IssueGroup, bool) {
	item, ok := m.list.SelectedItem().(GroupItem)
	if !ok {
		return model.IssueGroup{}, false
	}
	return item.Group, true
}

// View renders the issue table view.
func (m Model) View() string {
	if m.vm.Loading() && len(m.list.Items()) == 0 {
		return m.centered("Loading issues...")
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	if m.expanded {
		m.list.SetSize(m.width, m.height-2-reportPanelHeight)
		return lipgloss.JoinVertical(
			lipgloss.Left,
			m.list.View(),
			m.renderReportPanel(),
		)
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no groups are visible.
func (m Model) renderEmptyState() string {
	if errMsg := m.vm.Error(); errMsg != "" {
		return m.centered(fmt.Sprintf(
			"Could not load issues:\n%s\n\nPress r to retry.", errMsg))
	}

	if len(m.vm.Groups()) > 0 {
		return m.centered("No matching issues.\nPress t/f/s to adjust filters.")
	}

	return m.centered(
		"No issues detected yet.\n\n" +
			"Press i to connect Slack, HubSpot, or Jira.",
	)
}

func (m Model) centered(text string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// renderReportPanel draws the expanded report list for the selected group.
func (m Model) renderReportPanel() string {
	panel := theme.PanelStyle.Width(m.width - 2)

	item, ok := m.list.SelectedItem().(GroupItem)
	if !ok {
		return panel.Render(theme.DimmedStyle.Render("No issue selected."))
	}

	state := m.vm.Reports(item.Group.ID)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(item.Group.Title))
	b.WriteString("\n")
	if item.Group.Summary != "" {
		b.WriteString(theme.DimmedStyle.Render(item.Group.Summary))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case state.Loading:
		b.WriteString(theme.DimmedStyle.Render("Loading reports..."))
	case state.Error != "":
		b.WriteString(theme.ErrorStyle.Render("Failed to load reports: " + state.Error))
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render("enter to retry"))
	case len(state.Items) == 0:
		b.WriteString(theme.DimmedStyle.Render("No individual reports for this issue."))
	default:
		for i, r := range state.Items {
			if i >= reportPanelHeight-5 {
				b.WriteString(theme.DimmedStyle.Render(
					fmt.Sprintf("... and %d more", len(state.Items)-i)))
				break
			}
			badge := theme.SourceLabelStyle(r.Source).Render(r.Source)
			line := badge + " " + r.Title
			if r.IsJiraTicket() {
				line += lipgloss.NewStyle().
					Foreground(theme.ColorBlue).
					Render(" (" + r.ExternalID + ")")
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return panel.Render(b.String())
}

// FilterSummary returns a short description of the active filters for
// the status bar, empty when everything is at its default.
func (m Model) FilterSummary() string {
	p := m.vm.Preferences()
	var parts []string
	if p.TypeFilter != prefs.TypeAll {
		parts = append(parts, "type:"+string(p.TypeFilter))
	}
	if p.TicketFilter != prefs.TicketAll {
		parts = append(parts, "ticket:"+string(p.TicketFilter))
	}
	if p.SeverityFilter != prefs.SeverityAll {
		parts = append(parts, "severity:"+string(p.SeverityFilter))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
