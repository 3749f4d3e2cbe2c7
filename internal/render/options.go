package render

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/nhle/mail2pdf/internal/model"
)

// Options holds the structured renderer settings. The key names in the
// source map follow the wkhtmltopdf flag vocabulary, so existing
// option sets keep working.
type Options struct {
	PageSize    string
	Orientation string
	Encoding    string

	// Margins in millimeters; nil leaves the engine default.
	MarginTop    *uint
	MarginBottom *uint
	MarginLeft   *uint
	MarginRight  *uint

	DPI               uint
	Zoom              float64
	Grayscale         bool
	DisableJavascript bool
}

// OptionsFromMap validates and converts the configured key/value
// settings. Unknown keys fail fast at startup rather than at render
// time.
func OptionsFromMap(raw map[string]string) (Options, error) {
	var opts Options

	// Deterministic iteration keeps error messages stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		var err error

		switch key {
		case "page-size":
			opts.PageSize = value
		case "orientation":
			opts.Orientation = value
		case "encoding":
			opts.Encoding = value
		case "margin-top":
			opts.MarginTop, err = parseMargin(value)
		case "margin-bottom":
			opts.MarginBottom, err = parseMargin(value)
		case "margin-left":
			opts.MarginLeft, err = parseMargin(value)
		case "margin-right":
			opts.MarginRight, err = parseMargin(value)
		case "dpi":
			var dpi uint64
			dpi, err = strconv.ParseUint(value, 10, 32)
			opts.DPI = uint(dpi)
		case "zoom":
			opts.Zoom, err = strconv.ParseFloat(value, 64)
		case "grayscale":
			opts.Grayscale, err = parseFlagValue(value)
		case "disable-javascript":
			opts.DisableJavascript, err = parseFlagValue(value)
		default:
			return Options{}, &model.ConfigError{
				Setting: "renderer_options",
				Message: fmt.Sprintf("unknown option %q", key),
			}
		}

		if err != nil {
			return Options{}, &model.ConfigError{
				Setting: "renderer_options",
				Message: fmt.Sprintf("invalid value %q for %s: %v", value, key, err),
			}
		}
	}

	return opts, nil
}

func parseMargin(value string) (*uint, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return nil, err
	}
	m := uint(n)
	return &m, nil
}

// parseFlagValue treats an empty value as true, matching the common
// "flag present means on" convention of wkhtmltopdf option maps.
func parseFlagValue(value string) (bool, error) {
	if value == "" {
		return true, nil
	}
	return strconv.ParseBool(value)
}
