package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/killthenoise/killthenoise/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ReplaceGroups swaps the tenant's cached snapshot with the given
// groups, preserving their order, and returns the IDs of groups that
// were not in the previous snapshot.
func (s *SQLiteStore) ReplaceGroups(
	ctx context.Context,
	tenantID string,
	groups []model.IssueGroup,
) ([]string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existingIDs []string
	err = tx.SelectContext(ctx, &existingIDs,
		"SELECT id FROM issue_groups WHERE tenant_id = ?", tenantID)
	if err != nil {
		return nil, fmt.Errorf("reading existing groups: %w", err)
	}
	existing := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM issue_groups WHERE tenant_id = ?", tenantID); err != nil {
		return nil, fmt.Errorf("clearing previous snapshot: %w", err)
	}

	const query = `
		INSERT INTO issue_groups (
			id, tenant_id, title, summary, severity, type,
			confidence, reasoning, frequency, sources,
			team_id, position, updated_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var newIDs []string
	kept := make(map[string]bool, len(groups))
	for i, g := range groups {
		kept[g.ID] = true
		sources, err := json.Marshal(g.Sources)
		if err != nil {
			return nil, fmt.Errorf("marshaling sources for group %s: %w", g.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			g.ID, tenantID, g.Title, g.Summary, g.Severity, string(g.Type),
			g.Confidence, g.Reasoning, g.Frequency, string(sources),
			g.TeamID, i, g.UpdatedAt.UTC(), now,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting group %s: %w", g.ID, err)
		}

		if !existing[g.ID] {
			newIDs = append(newIDs, g.ID)
		}
	}

	// Cached reports for clusters that vanished from the snapshot are
	// stale and will never be requested again under that group ID.
	for _, id := range existingIDs {
		if kept[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM reports WHERE group_id = ?", id); err != nil {
			return nil, fmt.Errorf("pruning reports for group %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing snapshot: %w", err)
	}
	return newIDs, nil
}

// GetGroups retrieves the tenant's cached snapshot in its original
// backend order.
func (s *SQLiteStore) GetGroups(ctx context.Context, tenantID string) ([]model.IssueGroup, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, title, summary, severity, type,
			confidence, reasoning, frequency, sources,
			team_id, updated_at
		FROM issue_groups
		WHERE tenant_id = ?
		ORDER BY position`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	var groups []model.IssueGroup
	for rows.Next() {
		var g model.IssueGroup
		var typ, sources string
		err := rows.Scan(
			&g.ID, &g.Title, &g.Summary, &g.Severity, &typ,
			&g.Confidence, &g.Reasoning, &g.Frequency, &sources,
			&g.TeamID, &g.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		g.Type = model.IssueType(typ)
		if err := json.Unmarshal([]byte(sources), &g.Sources); err != nil {
			return nil, fmt.Errorf("unmarshaling sources for group %s: %w", g.ID, err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpsertReports replaces the cached reports for one group.
func (s *SQLiteStore) UpsertReports(
	ctx context.Context,
	groupID string,
	items []model.ReportItem,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM reports WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("clearing reports for group %s: %w", groupID, err)
	}

	const query = `
		INSERT INTO reports (id, group_id, source, title, url, external_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range items {
		_, err = stmt.ExecContext(ctx,
			r.ID, groupID, r.Source, r.Title, r.URL, r.ExternalID, r.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting report %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// GetReportsForGroup retrieves a group's cached reports, newest first.
func (s *SQLiteStore) GetReportsForGroup(ctx context.Context, groupID string) ([]model.ReportItem, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, group_id, source, title, url, external_id, created_at
		FROM reports
		WHERE group_id = ?
		ORDER BY created_at DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying reports for group %s: %w", groupID, err)
	}
	defer rows.Close()

	var items []model.ReportItem
	for rows.Next() {
		var r model.ReportItem
		err := rows.Scan(
			&r.ID, &r.GroupID, &r.Source, &r.Title, &r.URL, &r.ExternalID, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
