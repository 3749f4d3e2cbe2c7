package render

import (
	"testing"

	"github.com/nhle/mail2pdf/internal/model"
)

func TestOptionsFromMap(t *testing.T) {
	opts, err := OptionsFromMap(map[string]string{
		"page-size":   "A4",
		"orientation": "Landscape",
		"margin-top":  "10",
		"dpi":         "300",
		"zoom":        "1.5",
		"grayscale":   "",
		"encoding":    "utf-8",
	})
	if err != nil {
		t.Fatalf("OptionsFromMap: %v", err)
	}

	if opts.PageSize != "A4" || opts.Orientation != "Landscape" {
		t.Fatalf("page options wrong: %+v", opts)
	}
	if opts.MarginTop == nil || *opts.MarginTop != 10 {
		t.Fatalf("margin-top not parsed: %+v", opts.MarginTop)
	}
	if opts.MarginBottom != nil {
		t.Fatal("unset margin should stay nil")
	}
	if opts.DPI != 300 || opts.Zoom != 1.5 || !opts.Grayscale {
		t.Fatalf("numeric options wrong: %+v", opts)
	}
}

func TestOptionsFromMapRejectsUnknownKey(t *testing.T) {
	_, err := OptionsFromMap(map[string]string{"header-html": "x"})
	if !model.IsConfigError(err) {
		t.Fatalf("expected ConfigError for unknown key, got %v", err)
	}
}

func TestOptionsFromMapRejectsBadValue(t *testing.T) {
	_, err := OptionsFromMap(map[string]string{"dpi": "high"})
	if !model.IsConfigError(err) {
		t.Fatalf("expected ConfigError for bad value, got %v", err)
	}
}

func TestOptionsFromMapEmpty(t *testing.T) {
	opts, err := OptionsFromMap(nil)
	if err != nil {
		t.Fatalf("OptionsFromMap(nil): %v", err)
	}
	if opts != (Options{}) {
		t.Fatalf("expected zero options, got %+v", opts)
	}
}
