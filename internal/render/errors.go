package render

import (
	"errors"
	"fmt"
	"strings"
)

// contentErrorMarkers are substrings the rendering engine emits when
// the content itself is at fault (broken remote resources, refused
// connections inside the page). These failures are scoped to one
// message; anything else coming out of the engine is fatal to the run.
// Matching error text is brittle, so it is confined to this one
// translation point.
var contentErrorMarkers = []string{
	"ContentNotFoundError",
	"ContentOperationNotPermittedError",
	"UnknownContentError",
	"RemoteHostClosedError",
	"ConnectionRefusedError",
	"Server refused a stream",
}

// ContentError reports that the engine rejected one message's content.
// Recoverable: the batch logs it and moves on.
type ContentError struct {
	Title string
	Cause error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("rendering %q: likely content issue: %v", e.Title, e.Cause)
}

func (e *ContentError) Unwrap() error {
	return e.Cause
}

// IsContentError reports whether err (or any error in its chain) is a
// ContentError.
func IsContentError(err error) bool {
	var contentErr *ContentError
	return errors.As(err, &contentErr)
}

// classify wraps engine errors caused by the content into ContentError
// and passes everything else through unchanged.
func classify(err error, title string) error {
	text := err.Error()
	for _, marker := range contentErrorMarkers {
		if strings.Contains(text, marker) {
			return &ContentError{Title: title, Cause: err}
		}
	}
	return err
}
