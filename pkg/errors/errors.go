// Package errors provides structured error types for azdiagram.
//
// Errors carry a machine-readable [Code] so the CLI, the HTTP API and the MCP
// server can react to the same failure in their own way (exit status, HTTP
// status, tool error) without string matching.
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: input validation failures
//   - *NOT_FOUND: missing resources or files
//   - BACKEND_*, NOT_LOGGED_IN, EXTENSION_MISSING: inventory backend failures
//   - INTERNAL_*: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidScope, "invalid resource group: %s", rg)
//	if errors.Is(err, errors.ErrCodeInvalidScope) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeBackendUnavailable, origErr, "az graph query failed")
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
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidView   Code = "INVALID_VIEW"
	ErrCodeInvalidSource Code = "INVALID_SOURCE"
	ErrCodeInvalidScope  Code = "INVALID_SCOPE"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Inventory backend errors
	ErrCodeBackendUnavailable Code = "BACKEND_UNAVAILABLE"
	ErrCodeNotLoggedIn        Code = "NOT_LOGGED_IN"
	ErrCodeExtensionMissing   Code = "EXTENSION_MISSING"
	ErrCodeTimeout            Code = "TIMEOUT"

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

// Is reports whether any *Error in the chain of err carries code, so a
// TIMEOUT wrapped as BACKEND_UNAVAILABLE still matches both.
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
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsInvalid reports whether err carries one of the INVALID_* codes.
func IsInvalid(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidView,
		ErrCodeInvalidSource, ErrCodeInvalidScope, ErrCodeInvalidPath,
		ErrCodeInvalidConfig:
		return true
	}
	return false
}

// hints maps codes to the action that usually fixes them.
var hints = map[Code]string{
	ErrCodeNotLoggedIn:        "run: az login",
	ErrCodeExtensionMissing:   "run: az extension add --name resource-graph",
	ErrCodeBackendUnavailable: "check that the az CLI is installed and on PATH (azdiagram doctor)",
	ErrCodeTimeout:            "narrow the scope with --resource-group or raise collector.timeout",
	ErrCodeInvalidConfig:      "check the config file against the documented keys",
}

// Hint returns a one-line remedy for err, or "" when none is known.
func Hint(err error) string {
	return hints[GetCode(err)]
}
