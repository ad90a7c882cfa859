// Package errs provides the unified error type used across multidatasource.
//
// Every subsystem (config, datasource registry, database drivers, server)
// wraps its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "query timed out", pgErr)
//
//	// In a handler, check error kind:
//	if errs.IsQueryError(err) {
//	    http.Error(w, "query failed", http.StatusInternalServerError)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// All backends (Postgres, MySQL, SQL Server) map their native errors to one
// of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, unknown datasource
	ErrKindConnectionFailed         // cannot reach the backend or borrow a connection
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL execution or row mapping error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindConfiguration            // missing or invalid datasource configuration
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Configuration is shorthand for a configuration error.
func Configuration(msg string, cause error) *Error {
	return &Error{Kind: ErrKindConfiguration, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a SQL execution or mapping failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsConfiguration reports whether err comes from a missing or invalid
// datasource configuration. These are fatal at startup.
func IsConfiguration(err error) bool {
	return KindOf(err) == ErrKindConfiguration
}

// IsQueryError reports whether err is any failure surfaced while running a
// query: borrowing a connection, executing the statement or mapping rows.
func IsQueryError(err error) bool {
	switch KindOf(err) {
	case ErrKindConnectionFailed, ErrKindTimeout, ErrKindQueryFailed:
		return true
	}
	return false
}

// KindOf extracts the ErrKind from the first *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
