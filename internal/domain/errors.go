// Package domain defines the error taxonomy shared by the combat, deck and
// dice components. Every domain error carries a machine-checkable kind so
// the transport layer can map failures to the right status without string
// matching, and callers can tell a setup mistake from a timing conflict.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind string

const (
	// KindValidation marks malformed input: bad dice formulas, missing
	// required fields. Never retried automatically.
	KindValidation Kind = "validation"
	// KindStateConflict marks an operation that is not legal in the current
	// state machine state (advancing a turn from idle, holding while not
	// active).
	KindStateConflict Kind = "state_conflict"
	// KindNotFound marks a missing prerequisite: no card for the actor, deck
	// never reset, combat never started.
	KindNotFound Kind = "not_found"
	// KindDependency marks a failure of a downstream actor during a call.
	// Safe to retry: no local mutation happened.
	KindDependency Kind = "dependency"
	// KindInternal marks unexpected failures. Details stay server-side.
	KindInternal Kind = "internal"
)

// Error is a domain error with a stable kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Validation returns a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// StateConflict returns a KindStateConflict error.
func StateConflict(format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Dependency wraps a downstream failure as a retryable KindDependency error.
func Dependency(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindDependency, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf reports the kind of err, or KindInternal if err is not a domain
// error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
