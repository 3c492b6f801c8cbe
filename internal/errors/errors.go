// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure surfaced by the query client carries exactly one Kind, so callers
// and UI layers can branch on the category instead of parsing messages.
//
// Kind-specific details (HTTP status and body, offending field, timeout duration)
// live on the same E value, and the underlying cause stays reachable through Unwrap.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Timeout indicates a single attempt exceeded its configured duration.
	Timeout Kind = "timeout"
	// Network indicates a failure below the HTTP layer (DNS, refused connection, TLS).
	Network Kind = "network"
	// API indicates the server answered with a non-2xx status.
	API Kind = "api"
	// Validation indicates a local pre-flight check or a response shape check failed.
	Validation Kind = "validation"
	// Cancelled indicates the caller aborted the call.
	Cancelled Kind = "cancelled"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error

	// Status is the HTTP status code for API errors.
	Status int
	// Body is the parsed response body for API errors, or the status text when
	// the body was not JSON.
	Body any
	// Field is the offending field or path for validation errors.
	Field string
	// Timeout is the attempt duration that was exceeded.
	Timeout time.Duration
}

func (e *E) Error() string {
	msg := e.Message
	switch e.Kind {
	case API:
		msg = fmt.Sprintf("status %d: %s", e.Status, e.Message)
	case Validation:
		if e.Field != "" {
			msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// NewTimeout reports an attempt that ran longer than d.
func NewTimeout(d time.Duration, err error) *E {
	return &E{Kind: Timeout, Message: fmt.Sprintf("request timed out after %s", d), Err: err, Timeout: d}
}

// NewNetwork reports a transport-level failure.
func NewNetwork(err error) *E {
	return &E{Kind: Network, Message: "request failed", Err: err}
}

// NewAPI reports a non-2xx response.
func NewAPI(status int, body any, msg string) *E {
	return &E{Kind: API, Status: status, Body: body, Message: msg}
}

// NewValidation reports a failed local or structural check on field.
func NewValidation(field, msg string) *E {
	return &E{Kind: Validation, Field: field, Message: msg}
}

// NewCancelled reports a caller-initiated abort.
func NewCancelled(err error) *E {
	return &E{Kind: Cancelled, Message: "request cancelled", Err: err}
}

// As finds the first *E in err's chain.
func As(err error) (*E, bool) {
	var e *E
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of the first *E in err's chain.
func KindOf(err error) (Kind, bool) {
	if e, ok := As(err); ok {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// StatusOf returns the HTTP status carried by an API error, or 0.
func StatusOf(err error) int {
	if e, ok := As(err); ok && e.Kind == API {
		return e.Status
	}
	return 0
}
