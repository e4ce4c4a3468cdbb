// Package errors provides structured error types for gcbmanimation.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the rendering pipeline
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes map onto the failure taxonomy of the animation pipeline:
//   - IO_ERROR: a raster, config or results file is missing or unreadable
//   - UNMAPPED_VALUE: a reclassified value has no target code (logged, never fatal)
//   - OUT_OF_MEMORY: quantile sampling exhausted its memory budget
//   - RUNTIME_ERROR: an invariant was violated by the caller's configuration
//   - INVALID_*/UNSUPPORTED*: bad options or unavailable capabilities
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid year range: %d-%d", start, end)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "read raster %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPalette Code = "INVALID_PALETTE"
	ErrCodeInvalidUnits   Code = "INVALID_UNITS"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeIO       Code = "IO_ERROR"

	// Processing conditions
	ErrCodeUnmappedValue Code = "UNMAPPED_VALUE"
	ErrCodeOutOfMemory   Code = "OUT_OF_MEMORY"
	ErrCodeRuntime       Code = "RUNTIME_ERROR"

	// Capability errors
	ErrCodeUnsupported           Code = "UNSUPPORTED"
	ErrCodeUnsupportedConversion Code = "UNSUPPORTED_CONVERSION"

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
// For *Error types, returns the message (and the cause's user message, if any)
// without the code prefix. For other errors, returns the error string as-is.
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

// UnmappedValueWarning describes a reclassified value that has no pixel value in
// the target interpretation. It is logged, not returned: the affected pixels
// become nodata and processing continues.
type UnmappedValueWarning struct {
	Label  string
	NoData float64
}

// Error implements the error interface.
func (w *UnmappedValueWarning) Error() string {
	return fmt.Sprintf("No new pixel value for %s: setting to nodata (%v)", w.Label, w.NoData)
}

// Code returns the error code for this warning type.
func (w *UnmappedValueWarning) Code() Code {
	return ErrCodeUnmappedValue
}
