package issues

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/internal/store"
)

// SnapshotSavedMsg is a tea.Msg sent after the fetched snapshot was
// written to the local cache. NewGroupIDs lists clusters that were not
// in the previous snapshot.
type SnapshotSavedMsg struct {
	NewGroupIDs []string
	Err         string
}

// Cache persists fetched snapshots so the next launch renders
// immediately and newly appeared clusters can be surfaced.
type Cache struct {
	store    store.Store
	tenantID string
}

func NewCache(s store.Store, tenantID string) *Cache {
	return &Cache{store: s, tenantID: tenantID}
}

// Load reads the cached snapshot for the tenant. Used at startup before
// the first backend fetch resolves.
func (c *Cache) Load(ctx context.Context) ([]model.IssueGroup, error) {
	return c.store.GetGroups(ctx, c.tenantID)
}

// LoadReports reads one group's cached reports, nil when none were
// cached. Used at startup alongside Load.
func (c *Cache) LoadReports(ctx context.Context, groupID string) ([]model.ReportItem, error) {
	return c.store.GetReportsForGroup(ctx, groupID)
}

// Save returns a tea.Cmd writing the snapshot and recording a
// notification for each cluster that appeared since the previous one.
func (c *Cache) Save(groups []model.IssueGroup) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		newIDs, err := c.store.ReplaceGroups(ctx, c.tenantID, groups)
		if err != nil {
			return SnapshotSavedMsg{Err: err.Error()}
		}

		titles := make(map[string]string, len(groups))
		for _, g := range groups {
			titles[g.ID] = g.Title
		}
		for _, id := range newIDs {
			n := model.Notification{
				GroupID:  id,
				TenantID: c.tenantID,
				Message:  fmt.Sprintf("New issue cluster: %s", titles[id]),
			}
			if err := c.store.CreateNotification(ctx, n); err != nil {
				return SnapshotSavedMsg{NewGroupIDs: newIDs, Err: err.Error()}
			}
		}

		return SnapshotSavedMsg{NewGroupIDs: newIDs}
	}
}

// NotificationsAckedMsg is a tea.Msg sent after the unread new-cluster
// notifications were marked read.
type NotificationsAckedMsg struct {
	Err string
}

// AckNotifications returns a tea.Cmd marking every unread notification
// for the tenant as read. Sent when the operator refreshes, which is
// the acknowledgment gesture for the unread badge.
func (c *Cache) AckNotifications() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		unread, err := c.store.GetUnreadNotifications(ctx, c.tenantID)
		if err != nil {
			return NotificationsAckedMsg{Err: err.Error()}
		}
		for _, n := range unread {
			if err := c.store.MarkNotificationRead(ctx, n.ID); err != nil {
				return NotificationsAckedMsg{Err: err.Error()}
			}
		}
		return NotificationsAckedMsg{}
	}
}

// SaveReports returns a tea.Cmd caching one group's fetched reports.
// Failures are not surfaced; the cache is best effort.
func (c *Cache) SaveReports(groupID string, items []model.ReportItem) tea.Cmd {
	return func() tea.Msg {
		_ = c.store.UpsertReports(context.Background(), groupID, items)
		return nil
	}
}
