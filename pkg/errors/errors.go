// Package errors provides structured error types for docwalk.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the traversal core, backends, CLI and API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Two codes belong to the traversal core itself:
//   - EMPTY_INPUT: a selection with zero entries was handed to the selection adapter
//   - UNAVAILABLE_SOURCE: the data source could not answer a query for a document
//
// The remaining codes are used by the host-side packages (manifest loading,
// backends, query options, HTTP API).
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidKind, "unknown kind %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidKind) {
//	    // Handle validation error
//	}
//
//	// Wrap backend failures
//	err := errors.Wrap(errors.ErrCodeUnavailableSource, origErr, "read references of %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Traversal core
	ErrCodeEmptyInput        Code = "EMPTY_INPUT"
	ErrCodeUnavailableSource Code = "UNAVAILABLE_SOURCE"

	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidKind     Code = "INVALID_KIND"
	ErrCodeInvalidID       Code = "INVALID_ID"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// EmptyInput reports an empty selection handed to the selection adapter.
func EmptyInput(format string, args ...any) *Error {
	return New(ErrCodeEmptyInput, format, args...)
}

// Unavailable wraps a data-source failure for a well-formed document.
// A nil cause is allowed for sources that detect the condition themselves
// (for example a closed document).
func Unavailable(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeUnavailableSource, cause, format, args...)
}

// IsEmptyInput reports whether err is an EMPTY_INPUT error.
func IsEmptyInput(err error) bool { return Is(err, ErrCodeEmptyInput) }

// IsUnavailable reports whether err is an UNAVAILABLE_SOURCE error.
func IsUnavailable(err error) bool { return Is(err, ErrCodeUnavailableSource) }
