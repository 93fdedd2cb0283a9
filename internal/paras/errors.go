package paras

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError carries client-side rule violations. Requests failing these
// checks are never sent upstream.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// AsValidationError unwraps a ValidationError if err contains one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// HTTPError is a non-2xx response from the remote API. Detail is the
// structured error message when the payload carried one.
type HTTPError struct {
	Status int
	Detail string
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("paras api: %s (http %d)", e.Message(), e.Status)
}

// Message resolves the user-facing text: the structured detail when present,
// else the raw payload, else a generic fallback.
func (e *HTTPError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if body := strings.TrimSpace(string(e.Body)); body != "" {
		return body
	}
	return fmt.Sprintf("request failed (HTTP %d)", e.Status)
}

// IsAuth reports an authentication/authorization rejection.
func (e *HTTPError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// AsHTTPError unwraps an HTTPError if err contains one.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// newHTTPError extracts the best available message from an error payload.
// The backend answers either with a problem document carrying a detail/title
// field or with a bare JSON string.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{Status: status, Body: body}

	var problem struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		if problem.Detail != "" {
			e.Detail = problem.Detail
			return e
		}
		if problem.Title != "" {
			e.Detail = problem.Title
			return e
		}
	}

	var plain string
	if err := json.Unmarshal(body, &plain); err == nil && plain != "" {
		e.Detail = plain
	}
	return e
}
