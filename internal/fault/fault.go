// Package fault defines the error taxonomy shared by the Reddit and
// Notion adapters and classified by the MCP tool layer.
package fault

import (
	"errors"
	"fmt"
)

// ValidationError is returned for caller-correctable input problems,
// always before any outbound call is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError is returned when a Reddit or Notion API call fails.
// Status and Body carry the upstream HTTP response when one was
// received; Err carries transport-level causes.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps a transport-level failure of the named operation.
func Upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// UpstreamStatus wraps a non-success HTTP response of the named
// operation, preserving the status and (truncated) body.
func UpstreamStatus(op string, status int, body string) error {
	const maxBody = 500
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &UpstreamError{Op: op, Status: status, Body: body}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
