// Package errors provides structured error types for the StatData system.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryAdapter  ErrorCategory = "ADAPTER"
	ErrCategoryCatalog  ErrorCategory = "CATALOG"
	ErrCategoryCache    ErrorCategory = "CACHE"
	ErrCategoryManifest ErrorCategory = "MANIFEST"
	ErrCategoryDownload ErrorCategory = "DOWNLOAD"
	ErrCategoryConfig   ErrorCategory = "CONFIG"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Adapter codes
	CodeAdapterNotFound = "ADAPTER_NOT_FOUND"
	CodeUnsupported     = "UNSUPPORTED_OPERATION"

	// Catalog codes
	CodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	CodeIndexQueryFailed   = "INDEX_QUERY_FAILED"
	CodeIndexWriteFailed   = "INDEX_WRITE_FAILED"

	// Cache codes
	CodeEntryWriteFailed = "ENTRY_WRITE_FAILED"
	CodeEntryNotFound    = "ENTRY_NOT_FOUND"

	// Manifest codes
	CodeManifestUnreadable = "MANIFEST_UNREADABLE"

	// Download codes
	CodeDownloadFailed   = "DOWNLOAD_FAILED"
	CodeChecksumMismatch = "CHECKSUM_MISMATCH"

	// Config codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// StatDataError is the structured error type used throughout the system.
type StatDataError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *StatDataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *StatDataError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *StatDataError) Is(target error) bool {
	var t *StatDataError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new StatDataError.
func New(category ErrorCategory, code, message string) *StatDataError {
	return &StatDataError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new StatDataError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *StatDataError {
	return &StatDataError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var se *StatDataError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a StatDataError.
func GetCategory(err error) ErrorCategory {
	var se *StatDataError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a StatDataError.
func GetCode(err error) string {
	var se *StatDataError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryDownload && code == CodeDownloadFailed:
		return true
	case category == ErrCategoryCatalog && code == CodeIndexQueryFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewAdapterNotFound(idOrName string) *StatDataError {
	return New(ErrCategoryAdapter, CodeAdapterNotFound,
		fmt.Sprintf("no adapter registered for %q", idOrName))
}

func NewCatalogUnavailable(message string, cause error) *StatDataError {
	return Wrap(ErrCategoryCatalog, CodeCatalogUnavailable, message, cause)
}

func NewIndexQueryFailed(message string, cause error) *StatDataError {
	return Wrap(ErrCategoryCatalog, CodeIndexQueryFailed, message, cause)
}

func NewManifestUnreadable(path string, cause error) *StatDataError {
	return Wrap(ErrCategoryManifest, CodeManifestUnreadable,
		fmt.Sprintf("manifest %s could not be read", path), cause)
}

func NewDownloadError(message string, cause error) *StatDataError {
	return Wrap(ErrCategoryDownload, CodeDownloadFailed, message, cause)
}

func NewInternalError(message string, cause error) *StatDataError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
