package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// AppConfig is the immutable snapshot of all settings for one run.
// It is built once at startup and passed down; processing code never
// reads the environment directly.
type AppConfig struct {
	// Server is the IMAP server address, host or host:port.
	Server string `mapstructure:"server" yaml:"server"`

	// Username and Password authenticate the IMAP session. An empty
	// Password is resolved from the system keyring by the run driver.
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`

	// Folder is the source mailbox to poll.
	Folder string `mapstructure:"folder" yaml:"folder"`

	// TargetFolder receives successfully processed messages.
	TargetFolder string `mapstructure:"target_folder" yaml:"target_folder"`

	// Flag names the directive applied after success (SEEN, ANSWERED,
	// FLAGGED, UNFLAGGED, DELETED). It also selects the derived filter.
	Flag string `mapstructure:"flag" yaml:"flag"`

	// Filter is a raw IMAP search override. When set it bypasses the
	// filter derived from Flag entirely.
	Filter string `mapstructure:"filter" yaml:"filter"`

	// OutputDir is where rendered PDFs are written.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// Limit caps how many messages one run fetches.
	Limit int `mapstructure:"limit" yaml:"limit"`

	// PrintFailed echoes the render payload of failed messages to the log.
	PrintFailed bool `mapstructure:"print_failed" yaml:"print_failed"`

	// JournalPath is the sqlite run journal location. Empty disables
	// journaling.
	JournalPath string `mapstructure:"journal_path" yaml:"journal_path"`

	// RendererOptions are structured wkhtmltopdf settings, validated
	// against the known option names at startup. Decoded out of band:
	// the env form is a JSON string, the YAML form a map.
	RendererOptions map[string]string `mapstructure:"-" yaml:"renderer_options"`

	// IMAPTimeout bounds every individual mail server call.
	IMAPTimeout time.Duration `mapstructure:"imap_timeout" yaml:"imap_timeout"`

	// RenderTimeout bounds a single PDF render.
	RenderTimeout time.Duration `mapstructure:"render_timeout" yaml:"render_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mail2pdf/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mail2pdf", "config.yaml")
}

// DefaultJournalPath returns the default sqlite journal location,
// located at ~/.local/state/mail2pdf/journal.db.
func DefaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "journal.db")
	}
	return filepath.Join(home, ".local", "state", "mail2pdf", "journal.db")
}

// envBindings maps config keys to the environment variables that may
// set them. The IMAP_*/WKHTMLTOPDF_* names are kept for compatibility
// with existing deployments; the MAIL2PDF_* names are the native form.
var envBindings = map[string][]string{
	"server":           {"MAIL2PDF_SERVER", "IMAP_URL"},
	"username":         {"MAIL2PDF_USERNAME", "IMAP_USERNAME"},
	"password":         {"MAIL2PDF_PASSWORD", "IMAP_PASSWORD"},
	"folder":           {"MAIL2PDF_FOLDER", "IMAP_FOLDER"},
	"target_folder":    {"MAIL2PDF_TARGET_FOLDER", "IMAP_TARGET_FOLDER"},
	"flag":             {"MAIL2PDF_FLAG", "MAIL_MESSAGE_FLAG"},
	"filter":           {"MAIL2PDF_FILTER", "IMAP_FILTER"},
	"output_dir":       {"MAIL2PDF_OUTPUT_DIR", "OUTPUT_DIRECTORY"},
	"limit":            {"MAIL2PDF_LIMIT", "NUM_EMAILS_LIMIT"},
	"print_failed":     {"MAIL2PDF_PRINT_FAILED", "PRINT_FAILED_MSG"},
	"journal_path":     {"MAIL2PDF_JOURNAL"},
	"renderer_options": {"MAIL2PDF_RENDERER_OPTIONS", "WKHTMLTOPDF_OPTIONS"},
	"log_level":        {"MAIL2PDF_LOG_LEVEL"},
	"imap_timeout":     {"MAIL2PDF_IMAP_TIMEOUT"},
	"render_timeout":   {"MAIL2PDF_RENDER_TIMEOUT"},
}

// LoadConfig reads configuration from the given YAML file path using
// Viper, layering environment variables on top. A missing file is not
// an error; the environment alone can fully configure a run.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("folder", "INBOX")
	v.SetDefault("target_folder", "Processed")
	v.SetDefault("flag", "SEEN")
	v.SetDefault("output_dir", os.TempDir())
	v.SetDefault("limit", 50)
	v.SetDefault("print_failed", false)
	v.SetDefault("journal_path", DefaultJournalPath())
	v.SetDefault("imap_timeout", time.Minute)
	v.SetDefault("render_timeout", 2*time.Minute)
	v.SetDefault("log_level", "info")

	for key, envs := range envBindings {
		keys := append([]string{key}, envs...)
		if err := v.BindEnv(keys...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		_, pathErr := err.(*os.PathError)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !pathErr && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	// Environment values arrive as strings; decode them weakly so
	// NUM_EMAILS_LIMIT=50 or PRINT_FAILED_MSG=True work as expected.
	weak := func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }
	if err := v.Unmarshal(cfg, weak); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	opts, err := decodeRendererOptions(v.Get("renderer_options"))
	if err != nil {
		return nil, err
	}
	cfg.RendererOptions = opts

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decodeRendererOptions accepts the two shapes renderer options arrive
// in: a JSON object string from WKHTMLTOPDF_OPTIONS and friends, or a
// YAML map from the config file.
func decodeRendererOptions(raw any) (map[string]string, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		opts := map[string]string{}
		if err := json.Unmarshal([]byte(val), &opts); err != nil {
			return nil, &ConfigError{
				Setting: "renderer_options",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			}
		}
		return opts, nil
	default:
		opts, err := cast.ToStringMapStringE(raw)
		if err != nil {
			return nil, &ConfigError{
				Setting: "renderer_options",
				Message: fmt.Sprintf("invalid map: %v", err),
			}
		}
		return opts, nil
	}
}

// validate checks the settings every run needs. Password is not
// required here; the run driver falls back to the keyring.
func (c *AppConfig) validate() error {
	if c.Server == "" {
		return &ConfigError{Setting: "server", Message: "IMAP server is required"}
	}
	if c.Username == "" {
		return &ConfigError{Setting: "username", Message: "IMAP username is required"}
	}
	if c.Limit <= 0 {
		return &ConfigError{Setting: "limit", Message: "limit must be positive"}
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The password is never written;
// it lives in the system keyring.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("username", cfg.Username)
	v.Set("folder", cfg.Folder)
	v.Set("target_folder", cfg.TargetFolder)
	v.Set("flag", cfg.Flag)
	v.Set("output_dir", cfg.OutputDir)
	v.Set("limit", cfg.Limit)
	if cfg.Filter != "" {
		v.Set("filter", cfg.Filter)
	}
	if len(cfg.RendererOptions) > 0 {
		v.Set("renderer_options", cfg.RendererOptions)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
