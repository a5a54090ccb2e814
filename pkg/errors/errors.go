// Package errors provides structured error types for craftlaunch.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the local API, and the launcher
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages for the error dialog
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The launch pipeline distinguishes five failure classes:
//   - RESOLUTION_ERROR: descriptor or asset index could not be fetched or parsed (fatal)
//   - ACQUISITION_ERROR: a single artifact failed to download or extract (non-fatal)
//   - RUNTIME_NOT_FOUND: no compatible Java runtime was found (falls back to "java")
//   - SPAWN_ERROR: the runtime process could not be started (fatal)
//   - EARLY_EXIT: the runtime exited during the observation window (fatal)
//
// # Usage
//
//	err := errors.Wrap(errors.ErrCodeResolution, cause, "fetch asset index %s", id)
//	if errors.Is(err, errors.ErrCodeResolution) {
//	    // abort before spawning
//	}
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
	ErrCodeInvalidVersion Code = "INVALID_VERSION"
	ErrCodeInvalidPath    Code = "INVALID_PATH"
	ErrCodeInvalidProfile Code = "INVALID_PROFILE"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeVersionNotFound Code = "VERSION_NOT_FOUND"
	ErrCodeProfileNotFound Code = "PROFILE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Launch pipeline errors
	ErrCodeResolution      Code = "RESOLUTION_ERROR"
	ErrCodeAcquisition     Code = "ACQUISITION_ERROR"
	ErrCodeRuntimeNotFound Code = "RUNTIME_NOT_FOUND"
	ErrCodeSpawn           Code = "SPAWN_ERROR"
	ErrCodeEarlyExit       Code = "EARLY_EXIT"
	ErrCodeBusy            Code = "LAUNCH_IN_PROGRESS"

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
// For *Error types, returns the message (and cause) without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// =============================================================================
// Spawn and early-exit details
// =============================================================================

// SpawnKind classifies why a process could not be started.
type SpawnKind string

const (
	SpawnMissingExecutable SpawnKind = "missing executable"
	SpawnPermissionDenied  SpawnKind = "permission denied"
	SpawnResourceExhausted SpawnKind = "resource exhaustion"
	SpawnMemoryExhausted   SpawnKind = "memory exhaustion"
	SpawnOther             SpawnKind = "other"
)

// SpawnError reports a failure to start the runtime process.
type SpawnError struct {
	Kind       SpawnKind
	Executable string
	Err        error
}

// Error implements the error interface.
func (e *SpawnError) Error() string {
	switch e.Kind {
	case SpawnMissingExecutable:
		return fmt.Sprintf("failed to start %s: Java executable not found: %v", e.Executable, e.Err)
	case SpawnPermissionDenied:
		return fmt.Sprintf("failed to start %s: permission denied: %v", e.Executable, e.Err)
	case SpawnResourceExhausted:
		return fmt.Sprintf("failed to start %s: system resources exhausted: %v", e.Executable, e.Err)
	case SpawnMemoryExhausted:
		return fmt.Sprintf("failed to start %s: not enough memory: %v", e.Executable, e.Err)
	default:
		return fmt.Sprintf("failed to start %s: %v", e.Executable, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *SpawnError) Unwrap() error { return e.Err }

// Code returns the error code for this error type.
func (e *SpawnError) Code() Code { return ErrCodeSpawn }

// EarlyExitError reports a runtime that exited inside the observation window.
type EarlyExitError struct {
	ExitCode  int    // process exit status; 0 for a clean early exit
	Signature string // classified stderr signature, empty if none matched
	Message   string // human-readable description
	Stderr    string // captured stderr text, possibly empty
}

// Error implements the error interface.
func (e *EarlyExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s\n%s", e.Message, e.Stderr)
	}
	return e.Message
}

// Code returns the error code for this error type.
func (e *EarlyExitError) Code() Code { return ErrCodeEarlyExit }

// Coded is implemented by error types that carry their own code.
type Coded interface {
	Code() Code
}

// CodeOf returns the code of err, checking *Error and Coded implementations.
func CodeOf(err error) Code {
	if c := GetCode(err); c != "" {
		return c
	}
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
