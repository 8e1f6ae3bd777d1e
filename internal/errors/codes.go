// Package errors provides structured error handling for bm25vec.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (state files, corpus files)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeStateLocked    = "ERR_203_STATE_LOCKED"
	ErrCodeCorruptState   = "ERR_205_CORRUPT_STATE"
	ErrCodeFileCorrupt    = "ERR_206_FILE_CORRUPT"

	// Validation errors (400-499)
	ErrCodeInvalidInput  = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidQuery  = "ERR_403_INVALID_QUERY"
	ErrCodeQueryEmpty    = "ERR_404_QUERY_EMPTY"
	ErrCodeModelNotFound = "ERR_407_MODEL_NOT_FOUND"
	ErrCodeTokenizer     = "ERR_408_TOKENIZER_REQUIRED"

	// Internal errors (500-599)
	ErrCodeInternal   = "ERR_501_INTERNAL"
	ErrCodeFitFailed  = "ERR_505_FIT_FAILED"
	ErrCodeSaveFailed = "ERR_506_SAVE_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Configuration errors are fatal: they are detected before any work starts
// and re-running with the same input cannot succeed.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigInvalid, ErrCodeCorruptState:
		return SeverityFatal
	case ErrCodeStateLocked:
		return SeverityWarning
	}
	return SeverityError
}
