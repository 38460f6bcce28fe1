// Package errors provides structured error handling for coreason-search.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Data errors (stored rows, schema generations)
//   - 3XX: Backend errors (stores, models, sinks, hooks)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryData indicates stored-data and schema errors.
	CategoryData Category = "DATA"
	// CategoryBackend indicates external collaborator errors.
	CategoryBackend Category = "BACKEND"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Data errors (200-299)
	ErrCodeMetadataMalformed = "ERR_201_METADATA_MALFORMED"
	ErrCodeSchemaGeneration  = "ERR_202_SCHEMA_GENERATION"
	ErrCodeCorruptIndex      = "ERR_203_CORRUPT_INDEX"
	ErrCodeDocumentNotFound  = "ERR_204_DOCUMENT_NOT_FOUND"

	// Backend errors (300-399)
	ErrCodeBackendUnavailable = "ERR_301_BACKEND_UNAVAILABLE"
	ErrCodeNetworkTimeout     = "ERR_302_NETWORK_TIMEOUT"
	ErrCodeEmbeddingFailed    = "ERR_303_EMBEDDING_FAILED"
	ErrCodeAuditFailed        = "ERR_304_AUDIT_FAILED"
	ErrCodeFetchFailed        = "ERR_305_FETCH_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidRequest    = "ERR_401_INVALID_REQUEST"
	ErrCodeInvalidQuery      = "ERR_402_INVALID_QUERY"
	ErrCodeInvalidFilter     = "ERR_403_INVALID_FILTER"
	ErrCodeDimensionMismatch = "ERR_404_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
	ErrCodeStreamClosed = "ERR_503_STREAM_CLOSED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "401" from "ERR_401_INVALID_REQUEST")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryData
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Fatal errors abort the current operation outright.
	switch code {
	case ErrCodeCorruptIndex, ErrCodeSchemaGeneration:
		return SeverityFatal
	}

	// Retryable backend errors get warning severity.
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeBackendUnavailable:
		return true
	}
	return false
}
