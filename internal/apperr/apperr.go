package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline and API errors.
type Kind string

const (
	KindUpstreamService Kind = "UPSTREAM_SERVICE" // 502 — external service unreachable or erroring
	KindValidation      Kind = "VALIDATION"       // 400 — malformed input, rejected before any stage runs
	KindResource        Kind = "RESOURCE"         // 500 — disk, codec, or render failure
	KindNotFound        Kind = "NOT_FOUND"        // 404 — unknown session or artifact not ready
)

// Error is a structured error with a kind, an HTTP status, and a message
// that is safe to surface verbatim in a status response.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewUpstream marks a failed call to an external service.
func NewUpstream(service string, err error) *Error {
	return &Error{
		Kind:    KindUpstreamService,
		Status:  502,
		Message: fmt.Sprintf("%s service error: %v", service, err),
		cause:   err,
	}
}

// NewValidation rejects malformed input before any stage runs.
func NewValidation(msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  400,
		Message: msg,
	}
}

// NewResource marks a storage or codec failure.
func NewResource(msg string, err error) *Error {
	return &Error{
		Kind:    KindResource,
		Status:  500,
		Message: fmt.Sprintf("%s: %v", msg, err),
		cause:   err,
	}
}

// NewNotFound marks an unknown session or a not-yet-ready artifact.
func NewNotFound(msg string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Status:  404,
		Message: msg,
	}
}

// Is reports whether err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or KindResource for untyped errors so a
// fatal failure always records a usable kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindResource
}
