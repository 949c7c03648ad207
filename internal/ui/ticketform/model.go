// Package ticketform is the Jira ticket creation form for an issue
// group, with an AI-drafted description the user can edit before
// submitting.
package ticketform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/theme"
)

// SubmitMsg is dispatched when the user submits the form.
type SubmitMsg struct {
	GroupID     string
	Title       string
	Description string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
}

// Model is the Bubble Tea model for the ticket creation form.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	group     model.IssueGroup
	drafting  bool
	fallback  bool
	submitted bool
	errorMsg  string
	width     int
	height    int
}

// New creates a new ticket form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form for the given group. The title is
// prefilled from the group; the description arrives asynchronously via
// SetDescription once drafting resolves.
func (m *Model) Start(group model.IssueGroup) tea.Cmd {
	m.group = group
	m.fb.title = group.Title
	m.fb.description = ""
	m.drafting = true
	m.fallback = false
	m.submitted = false
	m.errorMsg = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// SetDescription fills in the drafted description. fallback marks that
// the local template was used instead of the drafting service.
func (m *Model) SetDescription(description string, fallback bool) {
	m.drafting = false
	m.fallback = fallback
	if strings.TrimSpace(m.fb.description) == "" {
		m.fb.description = description
	}
}

// SetError surfaces a creation failure and reopens the form so the
// user can edit the fields and resubmit. Field values are kept.
func (m *Model) SetError(msg string) tea.Cmd {
	m.errorMsg = msg
	m.submitted = false
	m.form = m.buildForm()
	return m.form.Init()
}

// GroupID returns the group the form was opened for.
func (m Model) GroupID() string {
	return m.group.ID
}

// Update handles messages for the ticket form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted && !m.submitted {
		m.submitted = true
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the ticket form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Create Jira Ticket"))
	b.WriteString("\n")

	if m.drafting {
		b.WriteString(theme.DimmedStyle.Render("Drafting description..."))
		b.WriteString("\n")
	} else if m.fallback {
		b.WriteString(theme.DimmedStyle.Render("Drafting service unavailable, template used."))
		b.WriteString("\n")
	}
	if m.errorMsg != "" {
		b.WriteString(theme.ErrorStyle.Render(m.errorMsg))
		b.WriteString("\n")
	}

	b.WriteString(m.form.View())

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(b.String())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Value(&m.fb.description).
				Validate(validateRequired("Description")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	groupID := m.group.ID
	title := m.fb.title
	description := m.fb.description
	return func() tea.Msg {
		return SubmitMsg{
			GroupID:     groupID,
			Title:       title,
			Description: description,
		}
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
