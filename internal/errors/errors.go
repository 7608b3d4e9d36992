// Package errors provides structured error types for the query engine.
// Every error carries a category, code and message so the CLI can decide
// how to report it and which exit status to use. No error is retryable:
// each operation is attempted exactly once per run.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the phase that produced them.
type ErrorCategory string

const (
	ErrCategoryConfig   ErrorCategory = "CONFIG"
	ErrCategoryIO       ErrorCategory = "IO"
	ErrCategoryParse    ErrorCategory = "PARSE"
	ErrCategoryQuery    ErrorCategory = "QUERY"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Config codes
	CodeMissingArgument = "MISSING_ARGUMENT"
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// IO codes
	CodeTableNotFound     = "TABLE_NOT_FOUND"
	CodeTableReadFailed   = "TABLE_READ_FAILED"
	CodeOutputWriteFailed = "OUTPUT_WRITE_FAILED"
	CodePublishFailed     = "PUBLISH_FAILED"

	// Parse codes
	CodeInvalidNumber = "INVALID_NUMBER"

	// Query codes
	CodeVerificationMismatch = "VERIFICATION_MISMATCH"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// EngineError is the structured error type used throughout the engine.
type EngineError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *EngineError) Is(target error) bool {
	var t *EngineError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new EngineError.
func New(category ErrorCategory, code, message string) *EngineError {
	return &EngineError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new EngineError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *EngineError {
	return &EngineError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *EngineError) WithDetails(details map[string]interface{}) *EngineError {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not an EngineError.
func GetCategory(err error) ErrorCategory {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not an EngineError.
func GetCode(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	return GetCategory(err) == ErrCategoryConfig
}

// Convenience constructors for common errors.

func NewConfigError(code, message string) *EngineError {
	return New(ErrCategoryConfig, code, message)
}

func NewTableError(code, path string, cause error) *EngineError {
	return Wrap(ErrCategoryIO, code, "table "+path, cause).
		WithDetails(map[string]interface{}{"path": path})
}

func NewOutputError(path string, cause error) *EngineError {
	return Wrap(ErrCategoryIO, CodeOutputWriteFailed, "failed to open output file "+path, cause).
		WithDetails(map[string]interface{}{"path": path})
}

func NewParseError(field, value string, cause error) *EngineError {
	return Wrap(ErrCategoryParse, CodeInvalidNumber, fmt.Sprintf("invalid %s %q", field, value), cause)
}

func NewQueryError(code, message string) *EngineError {
	return New(ErrCategoryQuery, code, message)
}

func NewInternalError(message string, cause error) *EngineError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
