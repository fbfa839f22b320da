package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies engine failures. Handlers derive the HTTP status
// from the kind; callers decide retryability from it.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation_error"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindForbidden       ErrorKind = "forbidden"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindUpstreamTimeout ErrorKind = "upstream_timeout"
	KindInternal        ErrorKind = "internal_error"
)

// HTTPStatus maps an error kind to its HTTP status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a caller may safely retry the request.
func (k ErrorKind) Retryable() bool {
	return k == KindUpstreamTimeout
}

// Error is the engine-wide error value carrying a kind, a caller-facing
// message and optional structured details.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// E constructs an engine error of the given kind.
func E(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Ef constructs an engine error with a formatted message.
func Ef(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to an engine error of the given kind.
func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// WithDetails returns a copy of the error carrying structured details.
func (e *Error) WithDetails(details map[string]any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// KindOf extracts the kind from any error. Context deadline failures from
// the store surface as upstream timeouts so callers can retry; everything
// unclassified is internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUpstreamTimeout
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
