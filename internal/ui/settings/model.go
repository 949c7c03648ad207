// Package settings is the workspace settings form: tenant, team scope,
// and backend address.
package settings

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/theme"
)

// SavedMsg is dispatched when the user saves the settings form.
type SavedMsg struct {
	Config model.AppConfig
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	tenantID string
	teamID   string
	baseURL  string
}

// Model is the Bubble Tea model for the settings form.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	config    model.AppConfig
	submitted bool
	width     int
	height    int
}

// New creates a new settings form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form from the current configuration.
func (m *Model) Start(cfg model.AppConfig) tea.Cmd {
	m.config = cfg
	m.fb.tenantID = cfg.TenantID
	m.fb.teamID = cfg.TeamID
	m.fb.baseURL = cfg.Backend.BaseURL
	m.submitted = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the settings form.
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

// View renders the settings form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Workspace Settings") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
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
				Title("Tenant ID").
				Description("Workspace UUID issued by the backend").
				Value(&m.fb.tenantID).
				Validate(validateTenantID),
			huh.NewInput().
				Title("Team").
				Description("Optional team scope for the issue list").
				Value(&m.fb.teamID),
			huh.NewInput().
				Title("Backend URL").
				Value(&m.fb.baseURL).
				Validate(validateRequired("Backend URL")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	cfg := m.config
	cfg.TenantID = strings.TrimSpace(m.fb.tenantID)
	cfg.TeamID = strings.TrimSpace(m.fb.teamID)
	cfg.Backend.BaseURL = strings.TrimSpace(m.fb.baseURL)
	return func() tea.Msg {
		return SavedMsg{Config: cfg}
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
	h := m.height - 4
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

func validateTenantID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("Tenant ID is required")
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("invalid tenant ID, expected a UUID")
	}
	return nil
}
