// Package apperr classifies service failures into kinds that map onto HTTP
// status codes and the {"error": "..."} response body.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"example.com/mediascribe/internal/poll"
)

// Kind is a machine readable failure category.
type Kind string

const (
	KindInvalidInput Kind = "INVALID_INPUT"
	KindAuth         Kind = "AUTH"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindNotFound     Kind = "NOT_FOUND"
	KindJobFailed    Kind = "JOB_FAILED"
	KindProvider     Kind = "PROVIDER"
	KindStorage      Kind = "STORAGE"
	KindStorageParse Kind = "STORAGE_PARSE"
	KindTimeout      Kind = "TIMEOUT"
	KindUnavailable  Kind = "UNAVAILABLE"
	KindInternal     Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	KindInvalidInput: http.StatusBadRequest,
	KindAuth:         http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindNotFound:     http.StatusNotFound,
	KindJobFailed:    http.StatusInternalServerError,
	KindProvider:     http.StatusInternalServerError,
	KindStorage:      http.StatusInternalServerError,
	KindStorageParse: http.StatusInternalServerError,
	KindTimeout:      http.StatusGatewayTimeout,
	KindUnavailable:  http.StatusServiceUnavailable,
	KindInternal:     http.StatusInternalServerError,
}

// Error is the unified application error.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field validation messages for KindInvalidInput.
	Fields map[string][]string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WithCause sets the underlying cause and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func InvalidInput(message string) *Error { return New(KindInvalidInput, message) }

// Validation reports field level input errors.
func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindInvalidInput, Message: "Invalid input", Fields: fields}
}

func Auth(message string) *Error         { return New(KindAuth, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func JobFailed(message string) *Error    { return New(KindJobFailed, message) }

// Provider wraps a third-party call failure, keeping the provider's message.
func Provider(err error) *Error {
	return &Error{Kind: KindProvider, Message: err.Error(), Cause: err}
}

func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Cause: err}
}

func StorageParse(message string, err error) *Error {
	return &Error{Kind: KindStorageParse, Message: message, Cause: err}
}

func Timeout(message string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Cause: err}
}

// Unavailable reports a dependency the service cannot reach right now.
func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Cause: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// From classifies any error. Unknown errors become KindInternal with a
// generic message so internals are not leaked to clients.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	switch {
	case errors.Is(err, poll.ErrExhausted), errors.Is(err, context.DeadlineExceeded):
		return Timeout("Timed out waiting for the remote job", err)
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindInternal, Message: "Request cancelled", Cause: err}
	}
	return &Error{Kind: KindInternal, Message: "Internal server error", Cause: err}
}
