// Package errors provides structured error types for uvburn.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the conversion pipeline
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages that name the offending package
//
// # Error Codes
//
// The conversion taxonomy:
//   - MALFORMED_MANIFEST: a pyproject.toml specifier or index cannot be used
//   - MALFORMED_LOCK_GRAPH: dangling edge or schema violation in uv.lock
//   - UNRESOLVED_INDEX: a registry package maps to no known index
//   - ORPHAN_PACKAGE: a package is unreachable from every root (warning only)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedLockGraph, "package %q depends on unknown package %q", from, to)
//	if errors.Is(err, errors.ErrCodeMalformedLockGraph) {
//	    // Handle inconsistent lock file
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMalformedManifest, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Conversion errors
	ErrCodeMalformedManifest  Code = "MALFORMED_MANIFEST"
	ErrCodeMalformedLockGraph Code = "MALFORMED_LOCK_GRAPH"
	ErrCodeUnresolvedIndex    Code = "UNRESOLVED_INDEX"
	ErrCodeOrphanPackage      Code = "ORPHAN_PACKAGE"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

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
// It unwraps the error chain looking for an *Error with a matching code,
// so a MALFORMED_LOCK_GRAPH wrapped by an outer INTERNAL_ERROR still matches.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// OrphanWarning describes a package that is present in the lock graph but
// unreachable from every dependency root. It is never returned as a fatal
// error; the pipeline collects these so their omission stays auditable.
type OrphanWarning struct {
	Package string
	Version string
}

// Error implements the error interface.
func (w *OrphanWarning) Error() string {
	return fmt.Sprintf("package %s==%s is not reachable from any dependency group and was omitted", w.Package, w.Version)
}

// Code returns the error code for this warning type.
func (w *OrphanWarning) Code() Code {
	return ErrCodeOrphanPackage
}
