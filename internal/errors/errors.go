package errors

import (
	"errors"
	"fmt"
)

// EngineError is the structured error type for litmatch.
// It provides rich context for error handling, logging, and user presentation.
type EngineError struct {
	// Code is the unique error code (e.g., "ERR_201_INDEX_NOT_READY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Index, Source, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with EngineError.
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *EngineError) WithDetail(key, value string) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new EngineError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an EngineError from an existing error.
// The error's message becomes the EngineError message.
func Wrap(code string, err error) *EngineError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotReady creates an error for searches issued before a successful build.
func NotReady(message string) *EngineError {
	return New(ErrCodeNotReady, message, nil)
}

// BuildError creates an index construction error.
func BuildError(message string, cause error) *EngineError {
	return New(ErrCodeBuildFailed, message, cause)
}

// SourceUnavailable creates a non-fatal retrieval source failure.
func SourceUnavailable(source string, cause error) *EngineError {
	e := New(ErrCodeSourceUnavailable, fmt.Sprintf("retrieval source %q unavailable", source), cause)
	return e.WithDetail("source", source)
}

// CapabilityUnavailable creates an error for a missing optional capability.
func CapabilityUnavailable(capability string) *EngineError {
	e := New(ErrCodeCapabilityUnavailable, fmt.Sprintf("capability %q unavailable", capability), nil)
	return e.WithDetail("capability", capability)
}

// InvalidQuery creates a query validation error.
func InvalidQuery(message string) *EngineError {
	return New(ErrCodeInvalidQuery, message, nil)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *EngineError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is an EngineError with Retryable flag set.
func IsRetryable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return false
}

// CodeOf returns the error code of an EngineError in the chain, or "" if none.
func CodeOf(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code string) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}
