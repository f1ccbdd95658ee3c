// Package errors provides structured error types for the buildplan resolver.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the resolution pipeline and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly messages naming the offending key, feature, or module
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Every failure mode of a resolution run maps to exactly one code. All
// resolution errors are fatal to the current run: there are no partial
// results and no retries, so callers only need the code for diagnostics
// and exit-status mapping.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", name)
//	if errors.Is(err, errors.ErrCodeUnknownFeature) {
//	    // Handle catalog lookup failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMalformedCatalog, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Catalog construction errors
	ErrCodeMalformedCatalog Code = "MALFORMED_CATALOG"
	ErrCodeDuplicateFeature Code = "DUPLICATE_FEATURE"
	ErrCodeUnknownFeature   Code = "UNKNOWN_FEATURE"
	ErrCodeUnknownModule    Code = "UNKNOWN_MODULE"

	// Source resolution errors
	ErrCodeMissingSourceVariant Code = "MISSING_SOURCE_VARIANT"

	// Configuration validation errors
	ErrCodeInvalidConfig        Code = "INVALID_CONFIG"
	ErrCodeConflictingSelection Code = "CONFLICTING_SELECTION"
	ErrCodeUnsatisfiedOption    Code = "UNSATISFIED_OPTION"

	// Dependency resolution errors
	ErrCodeCyclicDependency   Code = "CYCLIC_DEPENDENCY"
	ErrCodeDisabledDependency Code = "DISABLED_DEPENDENCY"
	ErrCodeEmptyLibrary       Code = "EMPTY_LIBRARY"

	// Compile option errors
	ErrCodeUnrecognizedOption Code = "UNRECOGNIZED_OPTION"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
