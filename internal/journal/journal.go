package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/portal-notify/internal/model"
)

// Outcome is how a journaled operation ended.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeFailed     Outcome = "failed"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeSkipped    Outcome = "skipped"
)

// Action is the kind of acknowledgement.
type Action string

const (
	ActionRead    Action = "read"
	ActionDismiss Action = "dismiss"
)

// SyncRun is one snapshot fetch of a single domain.
type SyncRun struct {
	ID          string       `db:"id"`
	Domain      model.Domain `db:"domain"`
	Silent      bool         `db:"silent"`
	Outcome     Outcome      `db:"outcome"`
	Error       string       `db:"error"`
	RecordCount int          `db:"record_count"`
	UnreadCount int          `db:"unread_count"`
	StartedAt   time.Time    `db:"started_at"`
	FinishedAt  time.Time    `db:"finished_at"`
}

// Duration is how long the run took.
func (r SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Ack is one acknowledgement or dismissal.
type Ack struct {
	ID             string       `db:"id"`
	NotificationID string       `db:"notification_id"`
	Domain         model.Domain `db:"domain"`
	Action         Action       `db:"action"`
	Outcome        Outcome      `db:"outcome"`
	Error          string       `db:"error"`
	CreatedAt      time.Time    `db:"created_at"`
}

// Journal is a local SQLite audit trail of sync runs and
// acknowledgements. Notification contents are never stored.
type Journal struct {
	db *sqlx.DB
}

// Open opens (or creates) a SQLite database at dbPath, enables WAL
// mode, and runs any pending schema migrations. ":memory:" is accepted.
func Open(dbPath string) (*Journal, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	// WAL keeps history reads from blocking sync writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	j := &Journal{db: db}
	if err := j.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (j *Journal) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := j.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = j.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := j.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordSync inserts a sync run. A missing ID is generated.
func (j *Journal) RecordSync(ctx context.Context, run SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()

	_, err := j.db.NamedExecContext(ctx, `
		INSERT INTO sync_runs (
			id, domain, silent, outcome, error,
			record_count, unread_count, started_at, finished_at
		) VALUES (
			:id, :domain, :silent, :outcome, :error,
			:record_count, :unread_count, :started_at, :finished_at
		)`, run)
	if err != nil {
		return fmt.Errorf("recording sync run %s: %w", run.ID, err)
	}
	return nil
}

// RecordAck inserts an acknowledgement. Missing ID and time are filled in.
func (j *Journal) RecordAck(ctx context.Context, ack Ack) error {
	if ack.ID == "" {
		ack.ID = uuid.NewString()
	}
	if ack.CreatedAt.IsZero() {
		ack.CreatedAt = time.Now()
	}
	ack.CreatedAt = ack.CreatedAt.UTC()

	_, err := j.db.NamedExecContext(ctx, `
		INSERT INTO acknowledgements (
			id, notification_id, domain, action, outcome, error, created_at
		) VALUES (
			:id, :notification_id, :domain, :action, :outcome, :error, :created_at
		)`, ack)
	if err != nil {
		return fmt.Errorf("recording acknowledgement %s: %w", ack.ID, err)
	}
	return nil
}

// RecentSyncs returns the newest sync runs first.
func (j *Journal) RecentSyncs(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []SyncRun
	err := j.db.SelectContext(ctx, &runs,
		"SELECT * FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	return runs, nil
}

// RecentAcks returns the newest acknowledgements first.
func (j *Journal) RecentAcks(ctx context.Context, limit int) ([]Ack, error) {
	if limit <= 0 {
		limit = 20
	}

	var acks []Ack
	err := j.db.SelectContext(ctx, &acks,
		"SELECT * FROM acknowledgements ORDER BY created_at DESC, rowid DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying acknowledgements: %w", err)
	}
	return acks, nil
}

// FailureCount returns how many runs for domain failed since t.
func (j *Journal) FailureCount(ctx context.Context, d model.Domain, since time.Time) (int, error) {
	var n int
	err := j.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM sync_runs WHERE domain = ? AND outcome = ? AND started_at >= ?",
		string(d), string(OutcomeFailed), since.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("counting failed %s syncs: %w", d, err)
	}
	return n, nil
}
