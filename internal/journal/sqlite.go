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
)

// SQLiteJournal implements Journal using a local SQLite database.
type SQLiteJournal struct {
	db *sqlx.DB
}

// NewSQLiteJournal opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations. Parent
// directories are created as needed.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One writer is all a sequential batch needs, and a single
	// connection keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

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

	j := &SQLiteJournal{db: db}
	if err := j.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return j, nil
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (j *SQLiteJournal) runMigrations() error {
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

// BeginRun inserts a new running run and returns its id.
func (j *SQLiteJournal) BeginRun(ctx context.Context) (string, error) {
	id := uuid.NewString()

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)",
		id, time.Now().UTC(), StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}

	return id, nil
}

// RecordDocument inserts one message outcome. The document id is
// assigned here when empty.
func (j *SQLiteJournal) RecordDocument(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err := j.db.NamedExecContext(ctx, `
		INSERT INTO documents (id, run_id, uid, subject, output_path, outcome, detail, created_at)
		VALUES (:id, :run_id, :uid, :subject, :output_path, :outcome, :detail, :created_at)`,
		doc,
	)
	if err != nil {
		return fmt.Errorf("recording document outcome: %w", err)
	}

	return nil
}

// FinishRun closes out a run with its counters and final status.
func (j *SQLiteJournal) FinishRun(
	ctx context.Context, runID string, summary Summary, runErr error,
) error {
	status := StatusCompleted
	errText := ""
	if runErr != nil {
		status = StatusFailed
		errText = runErr.Error()
	}

	_, err := j.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, status = ?, rendered = ?, skipped = ?, failed = ?, error = ?
		WHERE id = ?`,
		time.Now().UTC(), status,
		summary.Rendered, summary.Skipped, summary.Failed,
		errText, runID,
	)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}

	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (j *SQLiteJournal) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	err := j.db.SelectContext(ctx, &runs,
		"SELECT * FROM runs ORDER BY started_at DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// Documents returns the message outcomes of one run in insertion order.
func (j *SQLiteJournal) Documents(ctx context.Context, runID string) ([]Document, error) {
	var docs []Document
	err := j.db.SelectContext(ctx, &docs,
		"SELECT * FROM documents WHERE run_id = ? ORDER BY created_at, uid", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents for run %s: %w", runID, err)
	}

	return docs, nil
}
