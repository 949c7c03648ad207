// Package issues holds the view-model behind the issue dashboard: it
// fetches backend-computed issue groups, tracks per-group report loads
// independently, and derives the filtered, sorted list the table
// renders. All filtering is client-side over the already-fetched list;
// changing a filter never re-fetches.
package issues

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/prefs"
)

// fetchTimeout bounds a single backend call.
const fetchTimeout = 30 * time.Second

// API is the slice of the backend client the view-model depends on.
type API interface {
	ListIssueGroups(ctx context.Context, limit int) ([]model.IssueGroup, error)
	GetGroupReports(ctx context.Context, groupID string) ([]model.ReportItem, error)
}

// GroupsLoadedMsg is a tea.Msg sent when a group fetch resolved.
type GroupsLoadedMsg struct {
	Err        string
	Background bool
}

// ReportsLoadedMsg is a tea.Msg sent when one group's report fetch
// resolved. Other groups' report state is untouched.
type ReportsLoadedMsg struct {
	GroupID string
	Err     string
}

// ReportsState is the independently tracked load state of one group's
// contributing reports.
type ReportsState struct {
	Loading bool
	Loaded  bool
	Error   string
	Items   []model.ReportItem
}

// HasJiraTicket reports whether any loaded report is an existing Jira
// ticket. Unloaded reports count as "no ticket": the view shows what it
// knows, and the auto-load pass keeps that window short.
func (s ReportsState) HasJiraTicket() bool {
	for _, r := range s.Items {
		if r.IsJiraTicket() {
			return true
		}
	}
	return false
}

// reportsEntry is the internal per-group tracking record. seq fences
// out-of-order completions: a response older than the latest issued
// request is discarded instead of overwriting newer data.
type reportsEntry struct {
	state    ReportsState
	inflight bool
	seeded   bool
	seq      uint64
}

// ViewModel owns the dashboard's issue state. It is safe for use from
// Bubble Tea command goroutines; all mutation happens under its lock.
type ViewModel struct {
	client  API
	service *prefs.Service
	limit   int
	teamID  string

	mu       sync.Mutex
	groups   []model.IssueGroup
	loaded   bool
	loading  bool
	errorMsg string
	reports  map[string]*reportsEntry
	p        prefs.Preferences
}

// New creates a view-model. Preferences are read once from the service;
// invalid stored values have already been defaulted by Load.
func New(client API, service *prefs.Service, limit int, teamID string) *ViewModel {
	return &ViewModel{
		client:  client,
		service: service,
		limit:   limit,
		teamID:  teamID,
		reports: make(map[string]*reportsEntry),
		p:       service.Load(),
	}
}

// Seed pre-populates the group list from the local cache. It does
// nothing once a live fetch has succeeded.
func (vm *ViewModel) Seed(groups []model.IssueGroup) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.loaded || len(groups) == 0 {
		return
	}
	vm.groups = groups
}

// SeedReports pre-populates one group's report state from the local
// cache. Seeded state renders immediately but still counts as pending
// for the auto-load pass, so a live fetch replaces it as soon as the
// backend answers.
func (vm *ViewModel) SeedReports(groupID string, items []model.ReportItem) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if len(items) == 0 {
		return
	}
	if _, ok := vm.reports[groupID]; ok {
		return
	}
	vm.reports[groupID] = &reportsEntry{
		seeded: true,
		state:  ReportsState{Loaded: true, Items: items},
	}
}

// Preferences returns the current filter/sort preferences.
func (vm *ViewModel) Preferences() prefs.Preferences {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.p
}

// Loading reports whether a foreground group fetch is in flight.
func (vm *ViewModel) Loading() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loading
}

// Error returns the current fetch error message, empty when none.
func (vm *ViewModel) Error() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.errorMsg
}

// Groups returns a copy of the unfiltered group list in backend order.
func (vm *ViewModel) Groups() []model.IssueGroup {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]model.IssueGroup, len(vm.groups))
	copy(out, vm.groups)
	return out
}

// FetchGroups returns a tea.Cmd fetching the tenant's issue groups.
// Success replaces the in-memory list wholesale. On failure a
// background refresh leaves prior data in place; an initial or manual
// load clears the list and shows the empty-with-error state.
func (vm *ViewModel) FetchGroups(background bool) tea.Cmd {
	vm.mu.Lock()
	if !background {
		vm.loading = true
		vm.errorMsg = ""
	}
	vm.mu.Unlock()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		groups, err := vm.client.ListIssueGroups(ctx, vm.limit)

		vm.mu.Lock()
		defer vm.mu.Unlock()

		vm.loading = false
		if err != nil {
			vm.errorMsg = err.Error()
			if !background {
				vm.groups = nil
				vm.loaded = false
			}
			return GroupsLoadedMsg{Err: err.Error(), Background: background}
		}

		vm.groups = groups
		vm.loaded = true
		vm.errorMsg = ""
		return GroupsLoadedMsg{Background: background}
	}
}

// AutoLoadReports returns commands fetching reports for every group
// with a jira entry in its source breakdown whose reports have not been
// requested yet. Call it after each GroupsLoadedMsg.
func (vm *ViewModel) AutoLoadReports() tea.Cmd {
	vm.mu.Lock()
	var pending []string
	for _, g := range vm.groups {
		if !g.HasSource(string(model.ProviderJira)) {
			continue
		}
		entry, tracked := vm.reports[g.ID]
		if !tracked || (entry.seeded && !entry.inflight) {
			pending = append(pending, g.ID)
		}
	}
	vm.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	cmds := make([]tea.Cmd, 0, len(pending))
	for _, id := range pending {
		if cmd := vm.FetchReports(id); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// FetchReports returns a tea.Cmd lazily loading one group's reports.
// Duplicate requests for a group already in flight are coalesced, and
// each response is fenced by a per-group sequence number so a stale
// completion can never overwrite newer data.
func (vm *ViewModel) FetchReports(groupID string) tea.Cmd {
	vm.mu.Lock()
	entry, ok := vm.reports[groupID]
	if !ok {
		entry = &reportsEntry{}
		vm.reports[groupID] = entry
	}
	if entry.inflight {
		vm.mu.Unlock()
		return nil
	}
	entry.inflight = true
	entry.state.Loading = true
	entry.state.Error = ""
	entry.seq++
	seq := entry.seq
	vm.mu.Unlock()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		items, err := vm.client.GetGroupReports(ctx, groupID)

		vm.mu.Lock()
		defer vm.mu.Unlock()

		entry := vm.reports[groupID]
		if entry == nil || seq < entry.seq {
			// A newer request was issued; discard this response.
			return ReportsLoadedMsg{GroupID: groupID}
		}

		entry.inflight = false
		entry.state.Loading = false
		if err != nil {
			entry.state.Error = err.Error()
			entry.state.Items = nil
			return ReportsLoadedMsg{GroupID: groupID, Err: err.Error()}
		}

		entry.state.Loaded = true
		entry.state.Error = ""
		entry.state.Items = items
		entry.seeded = false
		return ReportsLoadedMsg{GroupID: groupID}
	}
}

// Reports returns a copy of one group's report state. Groups never
// requested return the zero state.
func (vm *ViewModel) Reports(groupID string) ReportsState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	entry, ok := vm.reports[groupID]
	if !ok {
		return ReportsState{}
	}
	out := entry.state
	out.Items = make([]model.ReportItem, len(entry.state.Items))
	copy(out.Items, entry.state.Items)
	return out
}

// InvalidateReports drops one group's report state so the next fetch
// reloads it; used after creating a ticket for the group. The sequence
// counter is advanced, not reset, so a response from a fetch issued
// before the invalidation can never overwrite the reload.
func (vm *ViewModel) InvalidateReports(groupID string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	entry, ok := vm.reports[groupID]
	if !ok {
		return
	}
	entry.seq++
	entry.inflight = false
	entry.seeded = false
	entry.state = ReportsState{}
}

// SetTypeFilter updates the type filter and persists preferences.
func (vm *ViewModel) SetTypeFilter(v prefs.TypeFilter) error {
	vm.mu.Lock()
	vm.p.TypeFilter = v
	p := vm.p
	vm.mu.Unlock()
	return vm.service.Save(p)
}

// SetTicketFilter updates the ticket-presence filter and persists.
func (vm *ViewModel) SetTicketFilter(v prefs.TicketFilter) error {
	vm.mu.Lock()
	vm.p.TicketFilter = v
	p := vm.p
	vm.mu.Unlock()
	return vm.service.Save(p)
}

// SetSeverityFilter updates the severity filter and persists.
func (vm *ViewModel) SetSeverityFilter(v prefs.SeverityFilter) error {
	vm.mu.Lock()
	vm.p.SeverityFilter = v
	p := vm.p
	vm.mu.Unlock()
	return vm.service.Save(p)
}

// SetSort adopts the given sort field. Re-selecting the current field
// flips the direction; a new field resets the direction to descending.
// Both values are persisted.
func (vm *ViewModel) SetSort(field prefs.SortField) error {
	vm.mu.Lock()
	if vm.p.SortField == field {
		if vm.p.SortDirection == prefs.SortDesc {
			vm.p.SortDirection = prefs.SortAsc
		} else {
			vm.p.SortDirection = prefs.SortDesc
		}
	} else {
		vm.p.SortField = field
		vm.p.SortDirection = prefs.SortDesc
	}
	p := vm.p
	vm.mu.Unlock()
	return vm.service.Save(p)
}

// SetTeamID changes the team scope applied by Visible.
func (vm *ViewModel) SetTeamID(teamID string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.teamID = teamID
}

// Clear drops all fetched state, e.g. on a tenant switch.
func (vm *ViewModel) Clear() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.groups = nil
	vm.loaded = false
	vm.loading = false
	vm.errorMsg = ""
	vm.reports = make(map[string]*reportsEntry)
}

// Visible derives the display list: type filter, then ticket-presence
// filter, then severity threshold, then team scope, then a stable sort
// by the chosen field. It is a pure function of the fetched state and
// preferences; applying it twice yields the same result.
func (vm *ViewModel) Visible() []model.IssueGroup {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	out := make([]model.IssueGroup, 0, len(vm.groups))
	for _, g := range vm.groups {
		if !matchesType(g, vm.p.TypeFilter) {
			continue
		}
		if !vm.matchesTicketLocked(g) {
			continue
		}
		if !matchesSeverity(g, vm.p.SeverityFilter) {
			continue
		}
		if vm.teamID != "" && g.TeamID != vm.teamID {
			continue
		}
		out = append(out, g)
	}

	sortGroups(out, vm.p.SortField, vm.p.SortDirection)
	return out
}

// matchesTicketLocked applies the ticket-presence filter using loaded
// report state. Caller holds vm.mu.
func (vm *ViewModel) matchesTicketLocked(g model.IssueGroup) bool {
	switch vm.p.TicketFilter {
	case prefs.TicketHas:
		entry, ok := vm.reports[g.ID]
		return ok && entry.state.HasJiraTicket()
	case prefs.TicketNo:
		entry, ok := vm.reports[g.ID]
		return !ok || !entry.state.HasJiraTicket()
	}
	return true
}

func matchesType(g model.IssueGroup, f prefs.TypeFilter) bool {
	switch f {
	case prefs.TypeBug:
		return g.Type == model.IssueTypeBug
	case prefs.TypeFeature:
		return g.Type == model.IssueTypeFeature
	}
	return true
}

// matchesSeverity applies the threshold filter. The >=80 band is
// inclusive of 80; a missing severity scores as 0.
func matchesSeverity(g model.IssueGroup, f prefs.SeverityFilter) bool {
	switch f {
	case prefs.SeverityHigh:
		return g.SeverityOrZero() >= 80
	case prefs.SeverityLow:
		return g.SeverityOrZero() < 80
	}
	return true
}
