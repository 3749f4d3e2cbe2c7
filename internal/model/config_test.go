package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("IMAP_URL", "imap.example.org")
	t.Setenv("IMAP_USERNAME", "batch")
	t.Setenv("IMAP_PASSWORD", "secret")
	t.Setenv("IMAP_FOLDER", "Invoices")
	t.Setenv("NUM_EMAILS_LIMIT", "10")
	t.Setenv("PRINT_FAILED_MSG", "True")
	t.Setenv("WKHTMLTOPDF_OPTIONS", `{"page-size":"A4","dpi":"300"}`)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server != "imap.example.org" || cfg.Username != "batch" || cfg.Password != "secret" {
		t.Fatalf("connection settings = %+v", cfg)
	}
	if cfg.Folder != "Invoices" {
		t.Fatalf("folder = %q", cfg.Folder)
	}
	if cfg.Limit != 10 {
		t.Fatalf("limit = %d", cfg.Limit)
	}
	if !cfg.PrintFailed {
		t.Fatal("print_failed not set from PRINT_FAILED_MSG=True")
	}
	if cfg.RendererOptions["page-size"] != "A4" || cfg.RendererOptions["dpi"] != "300" {
		t.Fatalf("renderer options = %+v", cfg.RendererOptions)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IMAP_URL", "imap.example.org")
	t.Setenv("IMAP_USERNAME", "batch")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Folder != "INBOX" {
		t.Fatalf("folder default = %q", cfg.Folder)
	}
	if cfg.TargetFolder != "Processed" {
		t.Fatalf("target folder default = %q", cfg.TargetFolder)
	}
	if cfg.Flag != "SEEN" {
		t.Fatalf("flag default = %q", cfg.Flag)
	}
	if cfg.Limit != 50 {
		t.Fatalf("limit default = %d", cfg.Limit)
	}
	if cfg.OutputDir != os.TempDir() {
		t.Fatalf("output dir default = %q", cfg.OutputDir)
	}
	if cfg.IMAPTimeout != time.Minute || cfg.RenderTimeout != 2*time.Minute {
		t.Fatalf("timeout defaults = %v / %v", cfg.IMAPTimeout, cfg.RenderTimeout)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server: mail.example.org:993
username: archiver
folder: Receipts
target_folder: Archived
flag: FLAGGED
limit: 5
renderer_options:
  page-size: Letter
  dpi: 300
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server != "mail.example.org:993" || cfg.Username != "archiver" {
		t.Fatalf("connection settings = %+v", cfg)
	}
	if cfg.TargetFolder != "Archived" || cfg.Flag != "FLAGGED" || cfg.Limit != 5 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RendererOptions["page-size"] != "Letter" || cfg.RendererOptions["dpi"] != "300" {
		t.Fatalf("renderer options = %+v", cfg.RendererOptions)
	}
}

func TestLoadConfigRequiresServer(t *testing.T) {
	t.Setenv("IMAP_USERNAME", "batch")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadConfigRejectsBadOptionsJSON(t *testing.T) {
	t.Setenv("IMAP_URL", "imap.example.org")
	t.Setenv("IMAP_USERNAME", "batch")
	t.Setenv("WKHTMLTOPDF_OPTIONS", "{not json")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	in := &AppConfig{
		Server:       "imap.example.org",
		Username:     "batch",
		Folder:       "INBOX",
		TargetFolder: "Done",
		Flag:         "SEEN",
		OutputDir:    "/var/pdfs",
		Limit:        25,
	}
	if err := SaveConfig(path, in); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	out, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if out.Server != in.Server || out.TargetFolder != "Done" || out.Limit != 25 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.Password != "" {
		t.Fatal("password must never round-trip through the config file")
	}
}
