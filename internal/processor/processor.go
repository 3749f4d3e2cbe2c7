// Package processor orchestrates one batch run: connect, search,
// render each candidate message, then flag and move it. A message
// whose content the renderer rejects is skipped and stays eligible for
// the next run; any other failure aborts the batch, leaving
// already-processed messages in their new state.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/mail2pdf/internal/journal"
	"github.com/nhle/mail2pdf/internal/mailbox"
	"github.com/nhle/mail2pdf/internal/model"
	"github.com/nhle/mail2pdf/internal/render"
)

// BatchError wraps any unexpected failure that stops a run: connection
// problems, unclassified render errors, flag or move failures.
type BatchError struct {
	Stage string
	Cause error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("mail processing failed during %s: %v", e.Stage, e.Cause)
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}

// IsBatchError reports whether err (or any error in its chain) is a BatchError.
func IsBatchError(err error) bool {
	var batchErr *BatchError
	return errors.As(err, &batchErr)
}

// Mailbox is the slice of the IMAP session the processor drives.
type Mailbox interface {
	Search(criteria *imap.SearchCriteria, limit int) ([]imap.UID, error)
	Fetch(uids []imap.UID) ([]mailbox.Message, error)
	ApplyFlag(uid imap.UID, directive mailbox.FlagDirective) error
	Move(uid imap.UID, folder string) error
	Close() error
}

// DialFunc opens an authenticated session. Swappable for tests.
type DialFunc func(cfg mailbox.DialConfig) (Mailbox, error)

// stepStatus tags the outcome of one message's processing step. The
// loop driver interprets the tag; errors never steer control flow
// across the loop boundary.
type stepStatus int

const (
	stepRendered stepStatus = iota
	stepSkippedAttachments
	stepSkippedContent
	stepFailed
)

type stepResult struct {
	status     stepStatus
	stage      string
	outputPath string
	err        error
}

// Processor runs one batch against one mailbox.
type Processor struct {
	cfg       *model.AppConfig
	directive mailbox.FlagDirective
	criteria  *imap.SearchCriteria
	renderer  render.Renderer
	journal   journal.Journal
	log       *slog.Logger
	dial      DialFunc
}

// New assembles a processor. The directive and criteria are derived by
// the caller so configuration problems surface before any connection
// is attempted.
func New(
	cfg *model.AppConfig,
	directive mailbox.FlagDirective,
	criteria *imap.SearchCriteria,
	renderer render.Renderer,
	jrnl journal.Journal,
	log *slog.Logger,
) *Processor {
	return &Processor{
		cfg:       cfg,
		directive: directive,
		criteria:  criteria,
		renderer:  renderer,
		journal:   jrnl,
		log:       log,
		dial: func(dc mailbox.DialConfig) (Mailbox, error) {
			return mailbox.Dial(dc)
		},
	}
}

// Run processes one batch. It returns the outcome counters alongside
// any fatal error; on a fatal error the counters cover what completed
// before the abort.
func (p *Processor) Run(ctx context.Context) (journal.Summary, error) {
	var summary journal.Summary

	p.log.Info("starting mail processing run",
		"folder", p.cfg.Folder, "limit", p.cfg.Limit)
	if p.cfg.PrintFailed {
		p.log.Info("failed message payloads will be echoed to the log")
	}

	runID, err := p.journal.BeginRun(ctx)
	if err != nil {
		// Journaling is diagnostic; never let it block mail processing.
		p.log.Warn("journal unavailable", "error", err)
	}

	summary, runErr := p.processBatch(ctx, runID)

	if err := p.journal.FinishRun(ctx, runID, summary, runErr); err != nil {
		p.log.Warn("recording run outcome failed", "error", err)
	}

	if runErr != nil {
		return summary, runErr
	}

	p.log.Info("completed mail processing run",
		"rendered", summary.Rendered,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary, nil
}

func (p *Processor) processBatch(ctx context.Context, runID string) (journal.Summary, error) {
	var summary journal.Summary

	session, err := p.dial(mailbox.DialConfig{
		Server:   p.cfg.Server,
		Username: p.cfg.Username,
		Password: p.cfg.Password,
		Folder:   p.cfg.Folder,
		Timeout:  p.cfg.IMAPTimeout,
	})
	if err != nil {
		return summary, &BatchError{Stage: "connect", Cause: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			p.log.Warn("closing mail session", "error", err)
		}
	}()

	uids, err := session.Search(p.criteria, p.cfg.Limit)
	if err != nil {
		return summary, &BatchError{Stage: "search", Cause: err}
	}
	if len(uids) == 0 {
		p.log.Info("no candidate messages")
		return summary, nil
	}

	messages, err := session.Fetch(uids)
	if err != nil {
		return summary, &BatchError{Stage: "fetch", Cause: err}
	}

	for i := range messages {
		msg := &messages[i]
		result := p.processMessage(ctx, session, msg)
		p.recordDocument(ctx, runID, msg, result)

		switch result.status {
		case stepRendered:
			summary.Rendered++
		case stepSkippedAttachments, stepSkippedContent:
			summary.Skipped++
		case stepFailed:
			summary.Failed++
			return summary, &BatchError{Stage: result.stage, Cause: result.err}
		}
	}

	return summary, nil
}

// processMessage runs the per-message state machine and reports the
// outcome as an explicit result. It never mutates mailbox state unless
// the render succeeded.
func (p *Processor) processMessage(
	ctx context.Context, session Mailbox, msg *mailbox.Message,
) stepResult {
	if msg.HasAttachments() {
		// Attachments hold content a rendered page cannot represent;
		// leave the message for manual handling.
		p.log.Info("skipping message with attachments",
			"uid", msg.UID, "subject", msg.Subject)
		return stepResult{status: stepSkippedAttachments}
	}

	p.log.Info("processing message", "uid", msg.UID, "subject", msg.Subject)
	payload := msg.Payload()

	renderCtx := ctx
	if p.cfg.RenderTimeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, p.cfg.RenderTimeout)
		defer cancel()
	}

	outputPath, err := p.renderer.Render(renderCtx, payload, msg.Subject)
	if err != nil {
		if render.IsContentError(err) {
			p.log.Warn("renderer rejected message content",
				"uid", msg.UID, "subject", msg.Subject, "error", err)
			p.echoPayload(payload)
			return stepResult{status: stepSkippedContent, err: err}
		}

		p.log.Error("unexpected render failure",
			"uid", msg.UID, "subject", msg.Subject, "error", err)
		p.echoPayload(payload)
		return stepResult{status: stepFailed, stage: "render", err: err}
	}
	p.log.Info("saved PDF", "path", outputPath)

	if p.directive.Recognized() {
		if err := session.ApplyFlag(msg.UID, p.directive); err != nil {
			return stepResult{status: stepFailed, stage: "flag", err: err}
		}
	}

	if err := session.Move(msg.UID, p.cfg.TargetFolder); err != nil {
		// Rendered and flagged but not moved would be reprocessed or
		// left inconsistent; stop the run instead.
		return stepResult{
			status: stepFailed,
			stage:  "move",
			err:    fmt.Errorf("message %q: %w", msg.Subject, err),
		}
	}
	p.log.Info("moved message", "subject", msg.Subject, "folder", p.cfg.TargetFolder)

	return stepResult{status: stepRendered, outputPath: outputPath}
}

func (p *Processor) echoPayload(payload string) {
	if p.cfg.PrintFailed {
		p.log.Warn("failed message payload", "payload", payload)
	}
}

func (p *Processor) recordDocument(
	ctx context.Context, runID string, msg *mailbox.Message, result stepResult,
) {
	if runID == "" {
		return
	}

	outcome := journal.OutcomeRendered
	detail := ""
	switch result.status {
	case stepSkippedAttachments:
		outcome = journal.OutcomeSkippedAttachments
		detail = fmt.Sprintf("%d attachment(s)", len(msg.Attachments))
	case stepSkippedContent:
		outcome = journal.OutcomeSkippedContent
		detail = result.err.Error()
	case stepFailed:
		outcome = journal.OutcomeFailed
		detail = result.err.Error()
	}

	err := p.journal.RecordDocument(ctx, journal.Document{
		RunID:      runID,
		UID:        int64(msg.UID),
		Subject:    msg.Subject,
		OutputPath: result.outputPath,
		Outcome:    outcome,
		Detail:     detail,
	})
	if err != nil {
		p.log.Warn("recording message outcome failed", "error", err)
	}
}
