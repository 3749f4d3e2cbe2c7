package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mail2pdf/internal/journal"
	"github.com/nhle/mail2pdf/internal/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	detailStyle  = lipgloss.NewStyle().Faint(true)
)

// historyCmd prints recent runs from the journal, and the per-message
// outcomes of the most recent one.
func historyCmd(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "configuration file")
	journalPath := fs.String("journal", "", "journal database (defaults to the configured path)")
	limit := fs.Int("n", 10, "number of runs to show")
	runID := fs.String("run", "", "show message outcomes for this run id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *journalPath
	if path == "" {
		// History must work even when the config cannot fully validate
		// (no server configured yet, say).
		if cfg, err := model.LoadConfig(*configPath); err == nil {
			path = cfg.JournalPath
		} else {
			path = model.DefaultJournalPath()
		}
	}
	if path == "" {
		return fmt.Errorf("journaling is disabled; no history to show")
	}

	jrnl, err := journal.NewSQLiteJournal(path)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	ctx := context.Background()

	runs, err := jrnl.RecentRuns(ctx, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	fmt.Println(headerStyle.Render("recent runs"))
	for _, run := range runs {
		fmt.Println(formatRun(run))
	}

	detailID := *runID
	if detailID == "" {
		detailID = runs[0].ID
	}

	docs, err := jrnl.Documents(ctx, detailID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("messages in run " + shortID(detailID)))
	for _, doc := range docs {
		fmt.Println(formatDocument(doc))
	}

	return nil
}

func formatRun(run journal.Run) string {
	status := run.Status
	switch run.Status {
	case journal.StatusCompleted:
		status = okStyle.Render(status)
	case journal.StatusFailed:
		status = failStyle.Render(status)
	default:
		status = runningStyle.Render(status)
	}

	line := fmt.Sprintf("%s  %s  %s  rendered=%d skipped=%d failed=%d",
		shortID(run.ID),
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		status,
		run.Rendered, run.Skipped, run.Failed,
	)
	if run.Error != "" {
		line += "\n" + detailStyle.Render("    "+run.Error)
	}
	return line
}

func formatDocument(doc journal.Document) string {
	var status string
	switch doc.Outcome {
	case journal.OutcomeRendered:
		status = okStyle.Render(doc.Outcome)
	case journal.OutcomeFailed:
		status = failStyle.Render(doc.Outcome)
	default:
		status = runningStyle.Render(doc.Outcome)
	}

	line := fmt.Sprintf("  uid=%-6d %-20s %s", doc.UID, status, doc.Subject)
	if doc.OutputPath != "" {
		line += "\n" + detailStyle.Render("      -> "+doc.OutputPath)
	}
	if doc.Detail != "" {
		line += "\n" + detailStyle.Render("      "+doc.Detail)
	}
	return line
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
