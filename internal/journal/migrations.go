package journal

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

CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY,
	domain       TEXT NOT NULL CHECK(domain IN ('connection', 'message')),
	silent       INTEGER NOT NULL DEFAULT 0 CHECK(silent IN (0, 1)),
	outcome      TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL DEFAULT 0,
	unread_count INTEGER NOT NULL DEFAULT 0,
	started_at   DATETIME NOT NULL,
	finished_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_sync_runs_domain ON sync_runs(domain, started_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS acknowledgements (
	id              TEXT PRIMARY KEY,
	notification_id TEXT NOT NULL,
	domain          TEXT NOT NULL CHECK(domain IN ('connection', 'message')),
	action          TEXT NOT NULL CHECK(action IN ('read', 'dismiss')),
	outcome         TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_acknowledgements_created ON acknowledgements(created_at);
CREATE INDEX IF NOT EXISTS idx_acknowledgements_notification ON acknowledgements(notification_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
