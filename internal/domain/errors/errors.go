// Package errors defines the ledger error taxonomy.
// Using typed errors (instead of strings) allows callers and the HTTP layer
// to branch on the failure kind without parsing messages.
//
// Pattern: Sentinel Errors + Wrapping Error Type
package errors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Every error produced by the engine unwraps to exactly one
// of these, so callers use errors.Is against the kind they care about.
var (
	// ErrValidation - input violates a structural or domain rule
	// (unbalanced entries, zero amount, mixed assets, identical transfer sides).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound - referenced wallet, projection, or transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict - uniqueness violation, optimistic version conflict, or
	// idempotency-key reuse with a different payload.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized - missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden - valid token but missing required scope.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable - the store is unreachable; the service fails closed.
	ErrUnavailable = errors.New("service unavailable")
)

// Error wraps a kind sentinel with a human-readable message and an optional
// underlying cause. errors.Is(err, kind) and errors.Unwrap both work through it.
type Error struct {
	kind    error
	message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap exposes the kind sentinel (and transitively the cause) to errors.Is.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Kind returns the sentinel this error carries.
func (e *Error) Kind() error { return e.kind }

// Message returns the message without the cause chain.
func (e *Error) Message() string { return e.message }

// New creates an error of the given kind.
func New(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Wrap creates an error of the given kind with an underlying cause.
func Wrap(kind error, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// Validation creates a validation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{kind: ErrValidation, message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{kind: ErrNotFound, message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{kind: ErrConflict, message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(format string, args ...any) *Error {
	return &Error{kind: ErrUnauthorized, message: fmt.Sprintf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *Error {
	return &Error{kind: ErrForbidden, message: fmt.Sprintf(format, args...)}
}

// Unavailable creates a service-unavailable error.
func Unavailable(message string, cause error) *Error {
	return &Error{kind: ErrUnavailable, message: message, cause: cause}
}

// Helper predicates for the common checks.

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsUnauthorized reports whether err is an unauthorized error.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsForbidden reports whether err is a forbidden error.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsUnavailable reports whether err is a service-unavailable error.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
