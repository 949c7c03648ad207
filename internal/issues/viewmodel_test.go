package issues

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/prefs"
)

// fakeAPI is a scriptable backend for view-model tests.
type fakeAPI struct {
	mu          sync.Mutex
	groups      []model.IssueGroup
	groupsErr   error
	reports     map[string][]model.ReportItem
	reportsErr  map[string]error
	groupCalls  int
	reportCalls map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		reports:     make(map[string][]model.ReportItem),
		reportsErr:  make(map[string]error),
		reportCalls: make(map[string]int),
	}
}

func (f *fakeAPI) ListIssueGroups(_ context.Context, _ int) ([]model.IssueGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupCalls++
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return f.groups, nil
}

func (f *fakeAPI) GetGroupReports(_ context.Context, groupID string) ([]model.ReportItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportCalls[groupID]++
	if err := f.reportsErr[groupID]; err != nil {
		return nil, err
	}
	return f.reports[groupID], nil
}

func sev(v float64) *float64 { return &v }

func group(id, title string, severity *float64, typ model.IssueType, freq int) model.IssueGroup {
	return model.IssueGroup{
		ID:        id,
		Title:     title,
		Severity:  severity,
		Type:      typ,
		Frequency: freq,
		UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestVM(api *fakeAPI) *ViewModel {
	return New(api, prefs.NewService(prefs.NewMemoryBackend()), 20, "")
}

func TestFetchGroupsReplacesWholesale(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("g1", "Login fails", sev(90), model.IssueTypeBug, 5),
	}
	vm := newTestVM(api)

	msg := vm.FetchGroups(false)()
	require.IsType(t, GroupsLoadedMsg{}, msg)
	assert.Empty(t, msg.(GroupsLoadedMsg).Err)
	assert.Len(t, vm.Groups(), 1)

	api.mu.Lock()
	api.groups = []model.IssueGroup{
		group("g2", "Export broken", sev(40), model.IssueTypeBug, 2),
	}
	api.mu.Unlock()

	vm.FetchGroups(false)()
	groups := vm.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "g2", groups[0].ID)
}

func TestInitialLoadFailureClearsList(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("g1", "Login fails", sev(90), model.IssueTypeBug, 5),
	}
	vm := newTestVM(api)
	vm.FetchGroups(false)()
	require.Len(t, vm.Groups(), 1)

	api.mu.Lock()
	api.groupsErr = errors.New("backend down")
	api.mu.Unlock()

	msg := vm.FetchGroups(false)().(GroupsLoadedMsg)
	assert.Equal(t, "backend down", msg.Err)
	assert.Empty(t, vm.Groups())
	assert.Equal(t, "backend down", vm.Error())
}

func TestBackgroundFailurePreservesData(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("g1", "Login fails", sev(90), model.IssueTypeBug, 5),
	}
	vm := newTestVM(api)
	vm.FetchGroups(false)()

	api.mu.Lock()
	api.groupsErr = errors.New("backend down")
	api.mu.Unlock()

	msg := vm.FetchGroups(true)().(GroupsLoadedMsg)
	assert.True(t, msg.Background)
	assert.Equal(t, "backend down", msg.Err)
	assert.Len(t, vm.Groups(), 1, "background failure keeps prior data")
}

func TestVisibleTypeFilter(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("g1", "Login fails", sev(90), model.IssueTypeBug, 5),
		group("g2", "Dark mode", sev(30), model.IssueTypeFeature, 8),
	}
	vm := newTestVM(api)
	vm.FetchGroups(false)()

	require.NoError(t, vm.SetTypeFilter(prefs.TypeBug))
	visible := vm.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "g1", visible[0].ID)

	// Filtering is a pure derivation: applying it again changes nothing.
	assert.Equal(t, visible, vm.Visible())
}

func TestVisibleSeverityBoundary(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("exact", "At threshold", sev(80), model.IssueTypeBug, 1),
		group("below", "Just below", sev(79), model.IssueTypeBug, 1),
		group("none", "Unscored", nil, model.IssueTypeBug, 1),
	}
	vm := newTestVM(api)
	vm.FetchGroups(false)()

	require.NoError(t, vm.SetSeverityFilter(prefs.SeverityHigh))
	visible := vm.Visible()
	require.Len(t, visible, 1, "80 is inclusive, 79 and unscored are not")
	assert.Equal(t, "exact", visible[0].ID)

	require.NoError(t, vm.SetSeverityFilter(prefs.SeverityLow))
	visible = vm.Visible()
	require.Len(t, visible, 2)
}

func TestVisibleTicketFilterWithUnloadedReports(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("g1", "Has ticket", sev(90), model.IssueTypeBug, 5),
		group("g2", "No ticket", sev(50), model.IssueTypeBug, 2),
	}
	api.reports["g1"] = []model.ReportItem{
		{ID: "r1", GroupID: "g1", Source: "jira", ExternalID: "ENG-42"},
	}
	vm := newTestVM(api)
	vm.FetchGroups(false)()

	require.NoError(t, vm.SetTicketFilter(prefs.TicketHas))

	// Nothing loaded yet: every group counts as having no ticket.
	assert.Empty(t, vm.Visible())

	vm.FetchReports("g1")()
	visible := vm.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "g1", visible[0].ID)

	require.NoError(t, vm.SetTicketFilter(prefs.TicketNo))
	visible = vm.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "g2", visible[0].ID)
}

func TestVisibleStableSortAndToggle(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("a", "Alpha", sev(50), model.IssueTypeBug, 3),
		group("b", "Beta", sev(50), model.IssueTypeBug, 7),
		group("c", "Gamma", sev(90), model.IssueTypeBug, 1),
	}
	vm := newTestVM(api)
	vm.FetchGroups(false)()

	// Default sort: severity descending. Equal severities keep backend order.
	visible := vm.Visible()
	assert.Equal(t, []string{"c", "a", "b"}, ids(visible))

	// Re-selecting the active field flips the direction.
	require.NoError(t, vm.SetSort(prefs.SortSeverity))
	assert.Equal(t, []string{"a", "b", "c"}, ids(vm.Visible()))

	// A new field resets to descending.
	require.NoError(t, vm.SetSort(prefs.SortFrequency))
	assert.Equal(t, []string{"b", "a", "c"}, ids(vm.Visible()))
}

func TestReportFetchCoalescing(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("g1", "Login fails", sev(90), model.IssueTypeBug, 5),
	}
	vm := newTestVM(api)
	vm.FetchGroups(false)()

	first := vm.FetchReports("g1")
	require.NotNil(t, first)

	// A second request while the first is still pending is coalesced.
	assert.Nil(t, vm.FetchReports("g1"))

	first()
	assert.Equal(t, 1, api.reportCalls["g1"])
	assert.True(t, vm.Reports("g1").Loaded)
}

func TestReportErrorIsPerGroup(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("g1", "Broken", sev(90), model.IssueTypeBug, 5),
		group("g2", "Fine", sev(50), model.IssueTypeBug, 2),
	}
	api.reportsErr["g1"] = errors.New("boom")
	api.reports["g2"] = []model.ReportItem{{ID: "r2", GroupID: "g2", Source: "slack"}}
	vm := newTestVM(api)
	vm.FetchGroups(false)()

	vm.FetchReports("g1")()
	vm.FetchReports("g2")()

	assert.Equal(t, "boom", vm.Reports("g1").Error)
	assert.True(t, vm.Reports("g2").Loaded)
	assert.Empty(t, vm.Reports("g2").Error)

	// A retry after the error goes through and clears it.
	api.mu.Lock()
	delete(api.reportsErr, "g1")
	api.reports["g1"] = []model.ReportItem{{ID: "r1", GroupID: "g1", Source: "hubspot"}}
	api.mu.Unlock()

	vm.FetchReports("g1")()
	assert.True(t, vm.Reports("g1").Loaded)
	assert.Empty(t, vm.Reports("g1").Error)
}

func TestAutoLoadReportsOnlyJiraSourcedGroups(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		{
			ID: "g1", Title: "Jira sourced", Type: model.IssueTypeBug,
			Sources: []model.SourceCount{{Source: "jira", Count: 1}},
		},
		{
			ID: "g2", Title: "Slack only", Type: model.IssueTypeBug,
			Sources: []model.SourceCount{{Source: "slack", Count: 3}},
		},
	}
	vm := newTestVM(api)
	vm.FetchGroups(false)()

	cmd := vm.AutoLoadReports()
	require.NotNil(t, cmd)
	drainCmd(cmd)

	assert.Equal(t, 1, api.reportCalls["g1"])
	assert.Zero(t, api.reportCalls["g2"])

	// Already-tracked groups are not re-requested.
	assert.Nil(t, vm.AutoLoadReports())
}

func TestClearResetsEverything(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("g1", "Login fails", sev(90), model.IssueTypeBug, 5),
	}
	api.reports["g1"] = []model.ReportItem{{ID: "r1", GroupID: "g1", Source: "slack"}}
	vm := newTestVM(api)
	vm.FetchGroups(false)()
	vm.FetchReports("g1")()

	vm.Clear()

	assert.Empty(t, vm.Groups())
	assert.False(t, vm.Reports("g1").Loaded)
}

func TestSeedDoesNotOverrideLiveData(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("live", "Live", sev(90), model.IssueTypeBug, 5),
	}
	vm := newTestVM(api)

	vm.Seed([]model.IssueGroup{group("cached", "Cached", sev(10), model.IssueTypeBug, 1)})
	assert.Equal(t, []string{"cached"}, ids(vm.Groups()))

	vm.FetchGroups(false)()
	assert.Equal(t, []string{"live"}, ids(vm.Groups()))

	vm.Seed([]model.IssueGroup{group("cached", "Cached", sev(10), model.IssueTypeBug, 1)})
	assert.Equal(t, []string{"live"}, ids(vm.Groups()), "seed is ignored once loaded")
}

func TestStaleResponseAfterInvalidationIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.groups = []model.IssueGroup{
		group("g1", "Login fails", sev(90), model.IssueTypeBug, 5),
	}
	vm := newTestVM(api)
	vm.FetchGroups(false)()

	api.mu.Lock()
	api.reports["g1"] = []model.ReportItem{
		{ID: "r1", GroupID: "g1", Source: "slack", Title: "user report"},
	}
	api.mu.Unlock()

	stale := vm.FetchReports("g1")
	require.NotNil(t, stale)

	vm.InvalidateReports("g1")

	fresh := vm.FetchReports("g1")
	require.NotNil(t, fresh)

	api.mu.Lock()
	api.reports["g1"] = []model.ReportItem{
		{ID: "r1", GroupID: "g1", Source: "slack", Title: "user report"},
		{ID: "r2", GroupID: "g1", Source: "jira", ExternalID: "ENG-7"},
	}
	api.mu.Unlock()

	msg, ok := fresh().(ReportsLoadedMsg)
	require.True(t, ok)
	require.Empty(t, msg.Err)

	// The request issued before the invalidation resolves last, with
	// the payload from before the ticket existed.
	api.mu.Lock()
	api.reports["g1"] = []model.ReportItem{
		{ID: "r1", GroupID: "g1", Source: "slack", Title: "user report"},
	}
	api.mu.Unlock()
	stale()

	state := vm.Reports("g1")
	assert.True(t, state.Loaded)
	assert.Len(t, state.Items, 2)
	assert.True(t, state.HasJiraTicket())
}

func TestSeedReportsServesCacheUntilLiveFetch(t *testing.T) {
	api := newFakeAPI()
	vm := newTestVM(api)

	vm.SeedReports("g1", []model.ReportItem{
		{ID: "r1", GroupID: "g1", Source: "jira", ExternalID: "ENG-1"},
	})

	state := vm.Reports("g1")
	assert.True(t, state.Loaded)
	assert.True(t, state.HasJiraTicket())

	// Seeded groups still count as pending for the auto-load pass, so
	// live data replaces the cached copy once the backend answers.
	g := group("g1", "Login fails", sev(90), model.IssueTypeBug, 5)
	g.Sources = []model.SourceCount{{Source: "jira", Count: 1}}
	api.groups = []model.IssueGroup{g}
	vm.FetchGroups(false)()

	drainCmd(vm.AutoLoadReports())

	assert.Equal(t, 1, api.reportCalls["g1"])
	state = vm.Reports("g1")
	assert.True(t, state.Loaded)
	assert.False(t, state.HasJiraTicket())

	// Once live data landed the group is no longer pending.
	assert.Nil(t, vm.AutoLoadReports())
}

func TestSeedReportsNeverOverwritesTrackedState(t *testing.T) {
	api := newFakeAPI()
	api.reports["g1"] = []model.ReportItem{
		{ID: "r1", GroupID: "g1", Source: "slack", Title: "live"},
	}
	vm := newTestVM(api)
	vm.FetchReports("g1")()

	vm.SeedReports("g1", []model.ReportItem{
		{ID: "r9", GroupID: "g1", Source: "hubspot", Title: "stale cache"},
	})

	state := vm.Reports("g1")
	require.Len(t, state.Items, 1)
	assert.Equal(t, "live", state.Items[0].Title)
}

func ids(groups []model.IssueGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.ID
	}
	return out
}

// drainCmd executes a command tree, following batches.
func drainCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			drainCmd(c)
		}
	}
}
