// Package apperr defines the typed failures returned by Event Hub operations.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	NotFound           Kind = "not_found"
	Conflict           Kind = "conflict"
	Unauthorized       Kind = "unauthorized"
	Forbidden          Kind = "forbidden"
	InvalidTicket      Kind = "invalid_ticket"
	AlreadyCheckedIn   Kind = "already_checked_in"
	BackendUnavailable Kind = "backend_unavailable"
	Invalid            Kind = "invalid"
)

// Error is a typed failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.E(apperr.Conflict, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// E builds an error of the given kind.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Ef builds an error of the given kind with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Backend wraps a store failure.
func Backend(op string, err error) *Error {
	return &Error{Kind: BackendUnavailable, Message: op + " failed", Err: err}
}

// KindOf returns the kind of err, or BackendUnavailable for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return BackendUnavailable
}

// Message returns the human-readable message of err without the wrapped cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "service unavailable"
}

// Has reports whether err is an *Error of the given kind.
func Has(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
