package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/nhle/mail2pdf/internal/credential"
	"github.com/nhle/mail2pdf/internal/model"
)

// configureCmd interactively collects connection settings, stores the
// password in the system keyring, and writes everything else to the
// YAML config file.
func configureCmd(args []string) error {
	fs := flag.NewFlagSet("configure", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Prefill from an existing config when there is one; an invalid or
	// missing file just means empty defaults.
	server, username := "", ""
	folder, targetFolder := "INBOX", "Processed"
	flagName := "SEEN"
	outputDir := os.TempDir()
	if existing, err := model.LoadConfig(*configPath); err == nil {
		server = existing.Server
		username = existing.Username
		folder = existing.Folder
		targetFolder = existing.TargetFolder
		flagName = existing.Flag
		outputDir = existing.OutputDir
	}

	var password string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP server").
				Description("host or host:port, implicit TLS").
				Value(&server).
				Validate(required("server")),
			huh.NewInput().
				Title("Username").
				Value(&username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				Description("stored in the system keyring, never in the config file").
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewInput().
				Title("Source folder").
				Value(&folder),
			huh.NewInput().
				Title("Target folder").
				Description("processed messages are moved here").
				Value(&targetFolder),
			huh.NewSelect[string]().
				Title("Completion flag").
				Description("applied to each message after its PDF is written").
				Options(huh.NewOptions(
					"SEEN", "ANSWERED", "FLAGGED", "UNFLAGGED", "DELETED",
				)...).
				Value(&flagName),
			huh.NewInput().
				Title("Output directory").
				Value(&outputDir),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return fmt.Errorf("running configure form: %w", err)
	}

	if password != "" {
		if err := credential.Set(credential.PasswordKey(username), password); err != nil {
			return err
		}
	}

	cfg := &model.AppConfig{
		Server:       server,
		Username:     username,
		Folder:       folder,
		TargetFolder: targetFolder,
		Flag:         flagName,
		OutputDir:    outputDir,
		Limit:        50,
	}

	if err := model.SaveConfig(*configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", *configPath)
	return nil
}

func required(name string) func(string) error {
	return func(value string) error {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
