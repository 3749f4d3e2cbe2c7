package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/mail2pdf/internal/credential"
	"github.com/nhle/mail2pdf/internal/journal"
	"github.com/nhle/mail2pdf/internal/logging"
	"github.com/nhle/mail2pdf/internal/mailbox"
	"github.com/nhle/mail2pdf/internal/model"
	"github.com/nhle/mail2pdf/internal/processor"
	"github.com/nhle/mail2pdf/internal/render"
)

// runCmd performs one batch run: load config, derive the filter, open
// the journal, and drive the processor once. Fatal errors are returned
// to main, which exits non-zero so schedulers can see the failure.
func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel)

	if cfg.Password == "" {
		password, err := credential.Get(credential.PasswordKey(cfg.Username))
		if err != nil {
			return &model.ConfigError{
				Setting: "password",
				Message: fmt.Sprintf(
					"not set and not found in keyring (run mail2pdf configure): %v", err,
				),
			}
		}
		cfg.Password = password
	}

	// Everything configuration-derived fails here, before any
	// connection is attempted.
	directive := mailbox.ParseFlagDirective(cfg.Flag)

	var criteria *imap.SearchCriteria
	if cfg.Filter != "" {
		criteria, err = mailbox.ParseCriteria(cfg.Filter)
	} else {
		criteria, err = mailbox.DeriveFilter(directive)
	}
	if err != nil {
		return err
	}

	opts, err := render.OptionsFromMap(cfg.RendererOptions)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", cfg.OutputDir, err)
	}

	var jrnl journal.Journal = journal.Noop{}
	if cfg.JournalPath != "" {
		sqlJournal, err := journal.NewSQLiteJournal(cfg.JournalPath)
		if err != nil {
			log.Warn("journal disabled", "path", cfg.JournalPath, "error", err)
		} else {
			jrnl = sqlJournal
			defer func() {
				if err := sqlJournal.Close(); err != nil {
					log.Warn("closing journal", "error", err)
				}
			}()
		}
	}

	renderer := render.NewPDFRenderer(cfg.OutputDir, opts)
	proc := processor.New(cfg, directive, criteria, renderer, jrnl, log)

	if _, err := proc.Run(context.Background()); err != nil {
		log.Error("mail processing run failed", "error", err)
		return err
	}

	return nil
}
