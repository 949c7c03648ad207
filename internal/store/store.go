// Package store caches the backend's issue snapshot in a local SQLite
// database so the dashboard can render instantly on startup and detect
// clusters that appeared since the last refresh.
package store

import (
	"context"

	"github.com/killthenoise/killthenoise/internal/model"
)

// Store defines the persistence interface for cached issue groups,
// their reports, and new-cluster notifications.
type Store interface {
	// ReplaceGroups swaps the cached snapshot for a tenant with the
	// given groups and returns the IDs that were not present before.
	ReplaceGroups(ctx context.Context, tenantID string, groups []model.IssueGroup) ([]string, error)
	GetGroups(ctx context.Context, tenantID string) ([]model.IssueGroup, error)

	UpsertReports(ctx context.Context, groupID string, items []model.ReportItem) error
	GetReportsForGroup(ctx context.Context, groupID string) ([]model.ReportItem, error)

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context, tenantID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	Close() error
}
