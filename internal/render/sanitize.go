package render

import (
	"path/filepath"
	"strings"
)

// maxTitleLen caps how much of the subject ends up in the filename.
const maxTitleLen = 50

// filenameSanitizer replaces characters that are unsafe or awkward in
// filenames with underscores. The list matches what mail subjects are
// observed to smuggle in: path separator, wildcard, colon, angle
// brackets, pipe, double quote, right single quotation mark, en dash.
var filenameSanitizer = strings.NewReplacer(
	"/", "_",
	"*", "_",
	":", "_",
	"<", "_",
	">", "_",
	"|", "_",
	`"`, "_",
	"’", "_",
	"–", "_",
)

// Sanitize maps an arbitrary subject string to a safe filename
// fragment. Idempotent; characters outside the denylist, whitespace
// included, pass through untouched.
func Sanitize(name string) string {
	return filenameSanitizer.Replace(name)
}

// OutputPath resolves where the PDF for the given title lands: the
// sanitized title truncated to 50 characters plus a .pdf suffix, under
// dir. Two subjects sanitizing to the same name overwrite each other.
func OutputPath(dir, titleHint string) string {
	name := []rune(Sanitize(titleHint))
	if len(name) > maxTitleLen {
		name = name[:maxTitleLen]
	}
	return filepath.Join(dir, string(name)+".pdf")
}
