package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()

	j, err := NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("creating journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	return j
}

func TestRunLifecycle(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	runID, err := j.BeginRun(ctx)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	runs, err := j.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != StatusRunning {
		t.Fatalf("runs = %+v", runs)
	}

	err = j.FinishRun(ctx, runID, Summary{Rendered: 2, Skipped: 1}, nil)
	if err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err = j.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	run := runs[0]
	if run.Status != StatusCompleted || run.Rendered != 2 || run.Skipped != 1 {
		t.Fatalf("run = %+v", run)
	}
	if run.FinishedAt == nil {
		t.Fatal("finished_at not set")
	}
}

func TestFinishRunWithError(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	runID, err := j.BeginRun(ctx)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	err = j.FinishRun(ctx, runID, Summary{Failed: 1}, errors.New("move failed"))
	if err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := j.RecentRuns(ctx, 1)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if runs[0].Status != StatusFailed || runs[0].Error != "move failed" {
		t.Fatalf("run = %+v", runs[0])
	}
}

func TestDocuments(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	runID, err := j.BeginRun(ctx)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	docs := []Document{
		{RunID: runID, UID: 11, Subject: "first", Outcome: OutcomeRendered, OutputPath: "/out/first.pdf"},
		{RunID: runID, UID: 12, Subject: "second", Outcome: OutcomeSkippedContent, Detail: "UnknownContentError"},
	}
	for _, doc := range docs {
		if err := j.RecordDocument(ctx, doc); err != nil {
			t.Fatalf("RecordDocument: %v", err)
		}
	}

	got, err := j.Documents(ctx, runID)
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("documents = %+v", got)
	}
	if got[0].Subject != "first" || got[0].OutputPath != "/out/first.pdf" {
		t.Fatalf("first doc = %+v", got[0])
	}
	if got[1].Outcome != OutcomeSkippedContent || got[1].Detail != "UnknownContentError" {
		t.Fatalf("second doc = %+v", got[1])
	}

	// Documents of an unknown run are simply empty.
	none, err := j.Documents(ctx, "no-such-run")
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("unexpected documents: %+v", none)
	}
}

func TestJournalCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "deep", "journal.db")

	j, err := NewSQLiteJournal(path)
	if err != nil {
		t.Fatalf("NewSQLiteJournal: %v", err)
	}
	defer j.Close()

	if _, err := j.BeginRun(context.Background()); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
}
