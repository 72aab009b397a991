package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidBoundingBox is returned when a bounding box does not have exactly
// four finite components.
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// maxErrorBody caps how much of an upstream error body is kept for diagnostics.
const maxErrorBody = 120

// TransportError reports a failed FIRMS fetch: either a non-2xx response
// (StatusCode set) or a network-level failure (Err set).
type TransportError struct {
	Source     string
	StatusCode int
	Body       string
	Err        error
}

// NewStatusError builds a TransportError for a non-2xx response, truncating
// the body to the first 120 characters.
func NewStatusError(source string, status int, body string) *TransportError {
	runes := []rune(body)
	if len(runes) > maxErrorBody {
		body = string(runes[:maxErrorBody])
	}
	return &TransportError{Source: source, StatusCode: status, Body: body}
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d – %s", e.StatusCode, e.Body)
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: transport failure", e.Source)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
