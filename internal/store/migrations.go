package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS issue_groups (
	id         TEXT NOT NULL,
	tenant_id  TEXT NOT NULL,
	title      TEXT NOT NULL,
	summary    TEXT NOT NULL DEFAULT '',
	severity   REAL,
	type       TEXT NOT NULL DEFAULT 'bug' CHECK(type IN ('bug', 'feature_request')),
	confidence REAL,
	reasoning  TEXT NOT NULL DEFAULT '',
	frequency  INTEGER NOT NULL DEFAULT 0,
	sources    TEXT NOT NULL DEFAULT '[]',
	team_id    TEXT NOT NULL DEFAULT '',
	position   INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL,
	fetched_at DATETIME NOT NULL,
	PRIMARY KEY (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	group_id    TEXT NOT NULL,
	source      TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	external_id TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	group_id   TEXT NOT NULL,
	tenant_id  TEXT NOT NULL,
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_issue_groups_tenant ON issue_groups(tenant_id);
CREATE INDEX IF NOT EXISTS idx_issue_groups_updated_at ON issue_groups(updated_at);
CREATE INDEX IF NOT EXISTS idx_reports_group_id ON reports(group_id);
CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
CREATE INDEX IF NOT EXISTS idx_notifications_tenant ON notifications(tenant_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_issue_groups_tenant_updated
	ON issue_groups(tenant_id, updated_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
