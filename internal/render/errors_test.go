package render

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyContentErrors(t *testing.T) {
	markers := []string{
		"ContentNotFoundError",
		"ContentOperationNotPermittedError",
		"UnknownContentError",
		"RemoteHostClosedError",
		"ConnectionRefusedError",
		"Server refused a stream",
	}

	for _, marker := range markers {
		t.Run(marker, func(t *testing.T) {
			cause := fmt.Errorf("exit status 1: %s at line 3", marker)
			err := classify(cause, "some subject")

			if !IsContentError(err) {
				t.Fatalf("expected ContentError for %q, got %v", marker, err)
			}
			if !errors.Is(err, cause) {
				t.Fatalf("ContentError does not wrap the cause")
			}

			var contentErr *ContentError
			if !errors.As(err, &contentErr) {
				t.Fatal("errors.As failed")
			}
			if contentErr.Title != "some subject" {
				t.Fatalf("title = %q", contentErr.Title)
			}
		})
	}
}

func TestClassifyPassesThroughUnknownErrors(t *testing.T) {
	cause := errors.New("no such file or directory")
	err := classify(cause, "subject")

	if err != cause {
		t.Fatalf("unknown error should pass through unchanged, got %v", err)
	}
	if IsContentError(err) {
		t.Fatal("unknown error misclassified as ContentError")
	}
}
