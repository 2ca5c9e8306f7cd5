// Package errors provides structured error handling for litmatch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index lifecycle errors
//   - 3XX: Retrieval source and capability errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIndex indicates index build and lifecycle errors.
	CategoryIndex Category = "INDEX"
	// CategorySource indicates retrieval source and capability errors.
	CategorySource Category = "SOURCE"
	// CategoryValidation indicates query validation errors.
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
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Index lifecycle errors (200-299)
	ErrCodeNotReady    = "ERR_201_INDEX_NOT_READY"
	ErrCodeBuildFailed = "ERR_202_INDEX_BUILD_FAILED"
	ErrCodeEmptyCorpus = "ERR_203_EMPTY_CORPUS"

	// Retrieval source and capability errors (300-399)
	ErrCodeSourceUnavailable     = "ERR_301_SOURCE_UNAVAILABLE"
	ErrCodeSourceTimeout         = "ERR_302_SOURCE_TIMEOUT"
	ErrCodeCapabilityUnavailable = "ERR_303_CAPABILITY_UNAVAILABLE"
	ErrCodeEmbedderUnavailable   = "ERR_304_EMBEDDER_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidQuery       = "ERR_401_INVALID_QUERY"
	ErrCodeInvalidConstraints = "ERR_402_INVALID_CONSTRAINTS"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the error category from a code prefix.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIndex
	case '3':
		return CategorySource
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from a code.
// Source degradation is a warning; build and internal failures are fatal.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeSourceUnavailable, ErrCodeSourceTimeout, ErrCodeCapabilityUnavailable:
		return SeverityWarning
	case ErrCodeBuildFailed, ErrCodeInternal:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether the operation behind the code can be retried.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNotReady, ErrCodeSourceTimeout, ErrCodeSourceUnavailable:
		return true
	default:
		return false
	}
}
