package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killthenoise/killthenoise/internal/model"
	"github.com/killthenoise/killthenoise/tests/testutil"
)

func sev(v float64) *float64 { return &v }

func sampleGroups() []model.IssueGroup {
	return []model.IssueGroup{
		{
			ID:        "g1",
			Title:     "Login fails",
			Summary:   "500s at peak",
			Severity:  sev(91),
			Type:      model.IssueTypeBug,
			Frequency: 12,
			Sources:   []model.SourceCount{{Source: "slack", Count: 9}},
			UpdatedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:        "g2",
			Title:     "Dark mode",
			Type:      model.IssueTypeFeature,
			Frequency: 3,
			UpdatedAt: time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC),
		},
	}
}

func TestReplaceGroupsRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	newIDs, err := s.ReplaceGroups(ctx, "tenant-1", sampleGroups())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1", "g2"}, newIDs)

	groups, err := s.GetGroups(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Backend order is preserved.
	assert.Equal(t, "g1", groups[0].ID)
	assert.Equal(t, "g2", groups[1].ID)

	require.NotNil(t, groups[0].Severity)
	assert.InDelta(t, 91, *groups[0].Severity, 0.001)
	assert.Nil(t, groups[1].Severity)
	assert.Equal(t, []model.SourceCount{{Source: "slack", Count: 9}}, groups[0].Sources)
}

func TestReplaceGroupsDetectsNewClusters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceGroups(ctx, "tenant-1", sampleGroups()[:1])
	require.NoError(t, err)

	newIDs, err := s.ReplaceGroups(ctx, "tenant-1", sampleGroups())
	require.NoError(t, err)
	assert.Equal(t, []string{"g2"}, newIDs, "only the newly appeared cluster is reported")

	// A snapshot for another tenant sees everything as new.
	newIDs, err = s.ReplaceGroups(ctx, "tenant-2", sampleGroups())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1", "g2"}, newIDs)
}

func TestReplaceGroupsDropsVanishedClusters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceGroups(ctx, "tenant-1", sampleGroups())
	require.NoError(t, err)

	_, err = s.ReplaceGroups(ctx, "tenant-1", sampleGroups()[1:])
	require.NoError(t, err)

	groups, err := s.GetGroups(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g2", groups[0].ID)
}

func TestGroupsAreTenantScoped(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceGroups(ctx, "tenant-1", sampleGroups())
	require.NoError(t, err)

	groups, err := s.GetGroups(ctx, "tenant-2")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestReportsRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceGroups(ctx, "tenant-1", sampleGroups())
	require.NoError(t, err)

	items := []model.ReportItem{
		{
			ID: "r1", GroupID: "g1", Source: "slack", Title: "user report",
			CreatedAt: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "r2", GroupID: "g1", Source: "jira", Title: "existing ticket",
			ExternalID: "ENG-42",
			CreatedAt:  time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, s.UpsertReports(ctx, "g1", items))

	got, err := s.GetReportsForGroup(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, "r2", got[0].ID)
	assert.True(t, got[0].IsJiraTicket())
	assert.False(t, got[1].IsJiraTicket())

	// Upsert replaces the whole set for the group.
	require.NoError(t, s.UpsertReports(ctx, "g1", items[:1]))
	got, err = s.GetReportsForGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNotificationLifecycle(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	n := model.Notification{
		GroupID:  "g1",
		TenantID: "tenant-1",
		Message:  "New issue cluster: Login fails",
	}
	require.NoError(t, s.CreateNotification(ctx, n))

	unread, err := s.GetUnreadNotifications(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.NotEmpty(t, unread[0].ID, "missing ID gets generated")
	assert.Equal(t, "New issue cluster: Login fails", unread[0].Message)

	// Other tenants do not see it.
	other, err := s.GetUnreadNotifications(ctx, "tenant-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.MarkNotificationRead(ctx, unread[0].ID))
	unread, err = s.GetUnreadNotifications(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.Error(t, s.MarkNotificationRead(ctx, "missing"))
}
