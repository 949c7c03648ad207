// Package app holds the root Bubble Tea model: view routing, layout,
// and the wiring between the backend client, local cache, and the
// per-provider connect controllers.
package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/killthenoise/killthenoise/internal/api"
	"github.com/killthenoise/killthenoise/internal/connect"
	"github.com/killthenoise/killthenoise/internal/credential"
	"github.com/killthenoise/killthenoise/internal/issues"
	"github.com/killthenoise/killthenoise/internal/keys"
	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/prefs"
	"github.com/killthenoise/killthenoise/internal/store"
	"github.com/killthenoise/killthenoise/internal/ticket"
	"github.com/killthenoise/killthenoise/internal/ui"
	"github.com/killthenoise/killthenoise/internal/ui/connectcard"
	"github.com/killthenoise/killthenoise/internal/ui/helpview"
	"github.com/killthenoise/killthenoise/internal/ui/issuetable"
	"github.com/killthenoise/killthenoise/internal/ui/settings"
	"github.com/killthenoise/killthenoise/internal/ui/ticketform"
)

// unreadCountMsg carries the number of unread notifications to the UI.
type unreadCountMsg struct {
	count int
}

// refreshTickMsg triggers a background issue refresh.
type refreshTickMsg struct{}

// configSavedMsg reports the result of persisting the configuration.
type configSavedMsg struct {
	err error
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewIssues ViewState = iota
	ViewIntegrations
	ViewTicketForm
	ViewSettings
	ViewHelp
)

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the backend and local cache.
type Model struct {
	currentView   ViewState
	previousView  ViewState
	layout        ui.Layout
	cfg           model.AppConfig
	cfgPath       string
	client        *api.Client
	store         store.Store
	cache         *issues.Cache
	vm            *issues.ViewModel
	creator       *ticket.Creator
	controllers   map[model.Provider]*connect.Controller
	prefsService  *prefs.Service
	keys          *keys.KeyMap
	issueTable    issuetable.Model
	integrations  connectcard.Model
	ticketForm    ticketform.Model
	settingsForm  settings.Model
	helpView      helpview.Model
	ready         bool
	unreadCount   int
	statusMessage string
}

// New creates the root application model. cfgPath is where settings
// changes are written back.
func New(cfg model.AppConfig, cfgPath string, s store.Store, prefsService *prefs.Service) Model {
	k := keys.DefaultKeyMap()

	client := api.NewClient(
		cfg.Backend.BaseURL,
		cfg.TenantID,
		time.Duration(cfg.Backend.TimeoutSec)*time.Second,
	)

	vm := issues.New(client, prefsService, cfg.Issues.Limit, cfg.TeamID)
	cache := issues.NewCache(s, cfg.TenantID)
	creator := ticket.NewCreator(client)

	controllers := newControllers(client, cfg)

	return Model{
		currentView:  ViewIssues,
		cfg:          cfg,
		cfgPath:      cfgPath,
		client:       client,
		store:        s,
		cache:        cache,
		vm:           vm,
		creator:      creator,
		controllers:  controllers,
		prefsService: prefsService,
		keys:         k,
		issueTable:   issuetable.New(vm, k, 80, 24),
		integrations: connectcard.New(controllers, k, 80, 24),
		ticketForm:   ticketform.New(80, 24),
		settingsForm: settings.New(80, 24),
		helpView:     helpview.New(k, 80, 24),
	}
}

// Init seeds the table from the local cache, starts the first fetch,
// checks every provider's auth status, and arms the refresh timer.
func (m Model) Init() tea.Cmd {
	ctx := context.Background()
	if cached, err := m.cache.Load(ctx); err == nil {
		m.vm.Seed(cached)
		for _, g := range cached {
			if items, err := m.cache.LoadReports(ctx, g.ID); err == nil {
				m.vm.SeedReports(g.ID, items)
			}
		}
	}

	cmds := []tea.Cmd{
		m.issueTable.Init(),
		m.refreshTick(),
		m.fetchUnreadCount(),
	}
	for _, c := range m.controllers {
		cmds = append(cmds, c.CheckAuth(true), c.WaitForNextResult())
	}
	return tea.Batch(cmds...)
}

// refreshTick schedules the next background issue refresh.
func (m Model) refreshTick() tea.Cmd {
	interval := time.Duration(m.cfg.Issues.RefreshIntervalSec) * time.Second
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.issueTable.SetSize(contentWidth, contentHeight)
		m.integrations.SetSize(contentWidth, contentHeight)
		m.ticketForm.SetSize(contentWidth, contentHeight)
		m.settingsForm.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case refreshTickMsg:
		return m, tea.Batch(m.vm.FetchGroups(true), m.refreshTick())

	case issues.GroupsLoadedMsg:
		var cmd tea.Cmd
		m.issueTable, cmd = m.issueTable.Update(msg)
		if msg.Err == "" {
			return m, tea.Batch(cmd, m.cache.Save(m.vm.Groups()))
		}
		return m, cmd

	case issues.ReportsLoadedMsg:
		var cmd tea.Cmd
		m.issueTable, cmd = m.issueTable.Update(msg)
		if msg.Err == "" {
			state := m.vm.Reports(msg.GroupID)
			if state.Loaded {
				return m, tea.Batch(cmd, m.cache.SaveReports(msg.GroupID, state.Items))
			}
		}
		return m, cmd

	case issues.SnapshotSavedMsg:
		if len(msg.NewGroupIDs) > 0 {
			return m, m.fetchUnreadCount()
		}
		return m, nil

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case issues.NotificationsAckedMsg:
		if msg.Err == "" {
			return m, m.fetchUnreadCount()
		}
		return m, nil

	case connect.StatusMsg, connect.ConnectStartedMsg, connect.RefreshResultMsg:
		return m.handleConnectMsg(msg)

	case connect.PollStoppedMsg:
		if msg.Reason == connect.StopAuthenticated {
			m.statusMessage = fmt.Sprintf("%s connected", msg.Provider)
		}
		return m.handleConnectMsg(msg)

	case issuetable.CreateTicketMsg:
		m.previousView = m.currentView
		m.currentView = ViewTicketForm
		startCmd := m.ticketForm.Start(msg.Group)
		return m, tea.Batch(startCmd, m.creator.GenerateDescription(msg.Group))

	case ticket.DescriptionMsg:
		if m.currentView == ViewTicketForm && m.ticketForm.GroupID() == msg.GroupID {
			m.ticketForm.SetDescription(msg.Description, msg.Fallback)
		}
		return m, nil

	case ticketform.SubmitMsg:
		return m, m.creator.Create(msg.GroupID, msg.Title, msg.Description)

	case ticketform.CancelMsg:
		m.currentView = ViewIssues
		return m, nil

	case ticket.CreatedMsg:
		if msg.Err != "" {
			cmd := m.ticketForm.SetError(msg.Err)
			return m, cmd
		}
		m.currentView = ViewIssues
		if msg.Ticket != nil {
			m.statusMessage = fmt.Sprintf("Created %s", msg.Ticket.TicketKey)
		}
		m.vm.InvalidateReports(msg.GroupID)
		return m, m.vm.FetchReports(msg.GroupID)

	case connectcard.CloseMsg:
		m.currentView = ViewIssues
		return m, nil

	case settings.SavedMsg:
		m.currentView = ViewIssues
		cmd := m.applyConfig(msg.Config)
		return m, cmd

	case settings.CancelMsg:
		m.currentView = ViewIssues
		return m, nil

	case configSavedMsg:
		if msg.err != nil {
			m.statusMessage = "Saving settings failed: " + msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		// Global keys that work regardless of current view
		switch msg.String() {
		case "ctrl+c":
			m.stopControllers()
			return m, tea.Quit

		case "q":
			if m.currentView == ViewIssues {
				m.stopControllers()
				return m, tea.Quit
			}

		case "?":
			if m.currentView == ViewTicketForm || m.currentView == ViewSettings {
				break
			}
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case "i":
			if m.currentView == ViewIssues {
				m.previousView = m.currentView
				m.currentView = ViewIntegrations
				return m, m.integrations.Init()
			}

		case "g":
			if m.currentView == ViewIssues {
				m.previousView = m.currentView
				m.currentView = ViewSettings
				startCmd := m.settingsForm.Start(m.cfg)
				return m, startCmd
			}

		case "r":
			if m.currentView == ViewIssues {
				m.statusMessage = ""
				return m, tea.Batch(m.vm.FetchGroups(false), m.cache.AckNotifications())
			}

		case "esc":
			if m.currentView == ViewHelp || m.currentView == ViewIntegrations {
				m.currentView = ViewIssues
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// newControllers builds one connect controller per provider, with
// integration IDs persisted to and recovered from the system keyring.
func newControllers(client *api.Client, cfg model.AppConfig) map[model.Provider]*connect.Controller {
	providers := []model.Provider{
		model.ProviderSlack,
		model.ProviderHubSpot,
		model.ProviderJira,
	}

	controllers := make(map[model.Provider]*connect.Controller, len(providers))
	for _, p := range providers {
		provider := p
		opts := connect.Options{
			PollInterval: time.Duration(cfg.Connect.PollIntervalSec) * time.Second,
			PollTimeout:  time.Duration(cfg.Connect.PollTimeoutSec) * time.Second,
			LookupIntegrationID: func() (string, error) {
				return credential.GetIntegrationID(string(provider))
			},
		}
		controllers[provider] = connect.New(client, provider, opts)
	}
	return controllers
}

// handleConnectMsg forwards a controller result to the integrations
// view and re-arms the subscription for that provider.
func (m Model) handleConnectMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	var provider model.Provider
	switch v := msg.(type) {
	case connect.StatusMsg:
		provider = v.Provider
		if v.Snapshot.Status != nil {
			switch {
			case v.Snapshot.Status.IntegrationID != "":
				_ = credential.SetIntegrationID(string(provider), v.Snapshot.Status.IntegrationID)
			case v.Snapshot.Status.NeedsAuth:
				// The stored record no longer authenticates; clear it so
				// the next connect starts a fresh flow.
				_ = credential.DeleteIntegrationID(string(provider))
			}
		}
	case connect.ConnectStartedMsg:
		provider = v.Provider
		if v.IntegrationID != "" {
			_ = credential.SetIntegrationID(string(provider), v.IntegrationID)
		}
	case connect.RefreshResultMsg:
		provider = v.Provider
	case connect.PollStoppedMsg:
		provider = v.Provider
	}
	if c := m.controllers[provider]; c != nil {
		cmds = append(cmds, c.WaitForNextResult())
	}

	var cmd tea.Cmd
	m.integrations, cmd = m.integrations.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// applyConfig persists changed settings and rebinds the tenant and
// team scope. A tenant change clears fetched state so nothing from the
// previous workspace leaks into the next one.
func (m *Model) applyConfig(cfg model.AppConfig) tea.Cmd {
	tenantChanged := cfg.TenantID != m.cfg.TenantID
	backendChanged := cfg.Backend.BaseURL != m.cfg.Backend.BaseURL
	m.cfg = cfg

	m.vm.SetTeamID(cfg.TeamID)

	var cmds []tea.Cmd
	if tenantChanged || backendChanged {
		m.client = api.NewClient(
			cfg.Backend.BaseURL,
			cfg.TenantID,
			time.Duration(cfg.Backend.TimeoutSec)*time.Second,
		)
		m.rebindClient()
		m.vm.Clear()
		m.unreadCount = 0
		cmds = append(cmds, m.vm.FetchGroups(false), m.fetchUnreadCount())
	}

	path := m.cfgPath
	cmds = append(cmds, func() tea.Msg {
		return configSavedMsg{err: model.SaveConfig(path, &cfg)}
	})
	return tea.Batch(cmds...)
}

// rebindClient points every client-holding component at the current
// tenant after a settings change.
func (m *Model) rebindClient() {
	m.stopControllers()

	k := m.keys
	m.vm = issues.New(m.client, m.prefsService, m.cfg.Issues.Limit, m.cfg.TeamID)
	m.cache = issues.NewCache(m.store, m.cfg.TenantID)
	m.creator = ticket.NewCreator(m.client)

	m.controllers = newControllers(m.client, m.cfg)

	m.issueTable = issuetable.New(m.vm, k, m.layout.ContentWidth(), m.layout.ContentHeight())
	m.integrations = connectcard.New(m.controllers, k, m.layout.ContentWidth(), m.layout.ContentHeight())
}

// stopControllers shuts down any active polling before quit or rebind.
func (m Model) stopControllers() {
	for _, c := range m.controllers {
		c.Stop()
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewIssues:
		m.issueTable, cmd = m.issueTable.Update(msg)
	case ViewIntegrations:
		m.integrations, cmd = m.integrations.Update(msg)
	case ViewTicketForm:
		m.ticketForm, cmd = m.ticketForm.Update(msg)
	case ViewSettings:
		m.settingsForm, cmd = m.settingsForm.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	badge := ""
	if m.unreadCount > 0 {
		badge = fmt.Sprintf("%d new", m.unreadCount)
	}
	header := m.layout.RenderHeader("KillTheNoise", badge, m.connectionStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.viewLabel())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewIssues:
		return m.issueTable.View()
	case ViewIntegrations:
		return m.integrations.View()
	case ViewTicketForm:
		return m.ticketForm.View()
	case ViewSettings:
		return m.settingsForm.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// viewLabel names the active view for the status bar's right segment.
func (m Model) viewLabel() string {
	switch m.currentView {
	case ViewIntegrations:
		return "integrations"
	case ViewTicketForm:
		return "new ticket"
	case ViewSettings:
		return "settings"
	case ViewHelp:
		return "help"
	default:
		return "issues"
	}
}

// connectionStatus summarizes provider connection states for the header.
func (m Model) connectionStatus() string {
	connected := 0
	polling := 0
	for _, c := range m.controllers {
		snap := c.Snapshot()
		switch snap.State {
		case connect.StateAuthenticated:
			connected++
		case connect.StatePolling:
			polling++
		}
	}

	if polling > 0 {
		return "authorizing..."
	}
	return fmt.Sprintf("%d/%d connected", connected, len(m.controllers))
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMessage != "" && m.currentView == ViewIssues {
		return m.statusMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewIntegrations:
		return "enter connect | r refresh | j/k move | esc back"
	case ViewTicketForm:
		return "enter submit | esc cancel"
	case ViewSettings:
		return "enter save | esc cancel"
	default:
		filterSummary := m.issueTable.FilterSummary()
		if filterSummary != "" {
			return filterSummary + " | t/f/s cycle filters"
		}
		return "q quit | ? help | r refresh | i integrations | c create ticket | enter reports"
	}
}

// fetchUnreadCount returns a tea.Cmd that queries the store for the
// number of unread notifications.
func (m Model) fetchUnreadCount() tea.Cmd {
	s := m.store
	tenantID := m.cfg.TenantID
	return func() tea.Msg {
		notifications, err := s.GetUnreadNotifications(context.Background(), tenantID)
		if err != nil {
			return unreadCountMsg{count: 0}
		}
		return unreadCountMsg{count: len(notifications)}
	}
}
