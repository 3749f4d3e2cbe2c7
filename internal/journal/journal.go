// Package journal records what each run did to which message. It is a
// diagnostic history only: candidate selection always comes from
// server-side flag and folder state, never from this database.
package journal

import (
	"context"
	"time"
)

// Document outcomes, one row per message a run touched.
const (
	OutcomeRendered           = "rendered"
	OutcomeSkippedAttachments = "skipped_attachments"
	OutcomeSkippedContent     = "skipped_content"
	OutcomeFailed             = "failed"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one invocation of the batch processor.
type Run struct {
	ID         string     `db:"id"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Status     string     `db:"status"`
	Rendered   int        `db:"rendered"`
	Skipped    int        `db:"skipped"`
	Failed     int        `db:"failed"`
	Error      string     `db:"error"`
}

// Document is the outcome of one message within a run.
type Document struct {
	ID         string    `db:"id"`
	RunID      string    `db:"run_id"`
	UID        int64     `db:"uid"`
	Subject    string    `db:"subject"`
	OutputPath string    `db:"output_path"`
	Outcome    string    `db:"outcome"`
	Detail     string    `db:"detail"`
	CreatedAt  time.Time `db:"created_at"`
}

// Summary are the counters a finished run reports.
type Summary struct {
	Rendered int
	Skipped  int
	Failed   int
}

// Journal is the persistence interface for run history.
type Journal interface {
	BeginRun(ctx context.Context) (string, error)
	RecordDocument(ctx context.Context, doc Document) error
	FinishRun(ctx context.Context, runID string, summary Summary, runErr error) error

	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	Documents(ctx context.Context, runID string) ([]Document, error)

	Close() error
}

// Noop is the Journal used when journaling is disabled.
type Noop struct{}

func (Noop) BeginRun(context.Context) (string, error) { return "", nil }

func (Noop) RecordDocument(context.Context, Document) error { return nil }

func (Noop) FinishRun(context.Context, string, Summary, error) error { return nil }

func (Noop) RecentRuns(context.Context, int) ([]Run, error) { return nil, nil }

func (Noop) Documents(context.Context, string) ([]Document, error) { return nil, nil }

func (Noop) Close() error { return nil }
