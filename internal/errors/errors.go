package errors

import (
	"errors"
	"fmt"
)

// VecError is the structured error type for bm25vec.
// It provides rich context for error handling, logging, and user presentation.
type VecError struct {
	// Code is the unique error code (e.g., "ERR_102_CONFIG_INVALID").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *VecError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *VecError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *VecError) Is(target error) bool {
	if t, ok := target.(*VecError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *VecError) WithDetail(key, value string) *VecError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *VecError) WithSuggestion(suggestion string) *VecError {
	e.Suggestion = suggestion
	return e
}

// New creates a new VecError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *VecError {
	return &VecError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a VecError from an existing error.
// The error's message becomes the VecError message.
func Wrap(code string, err error) *VecError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error. Invalid hyperparameters,
// n-gram ranges and document-frequency bounds all surface through here.
func ConfigError(message string, cause error) *VecError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ConfigErrorf is ConfigError with a format string.
func ConfigErrorf(format string, args ...any) *VecError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf(format, args...), nil)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *VecError {
	return New(ErrCodeFileNotFound, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *VecError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *VecError {
	return New(ErrCodeInternal, message, cause)
}

// IsConfigError reports whether err (or anything it wraps) is a
// configuration error.
func IsConfigError(err error) bool {
	return GetCategory(err) == CategoryConfig
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var ve *VecError
	if errors.As(err, &ve) {
		return ve.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a VecError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ve *VecError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// GetCategory extracts the category from a VecError anywhere in the chain.
func GetCategory(err error) Category {
	var ve *VecError
	if errors.As(err, &ve) {
		return ve.Category
	}
	return ""
}
