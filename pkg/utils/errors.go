package utils

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the failure taxonomy shared by the collector,
// the submission client and the audit log
type ErrorCategory int

const (
	CategoryNone ErrorCategory = iota
	CategoryConfig
	CategoryIO
	CategoryValidation
	CategoryTransport
	CategoryProtocol
)

// String returns string representation of error category
func (ec ErrorCategory) String() string {
	switch ec {
	case CategoryNone:
		return "none"
	case CategoryConfig:
		return "config"
	case CategoryIO:
		return "io"
	case CategoryValidation:
		return "validation"
	case CategoryTransport:
		return "transport"
	case CategoryProtocol:
		return "protocol"
	default:
		return "invalid"
	}
}

// CategorizedError carries an ErrorCategory alongside the underlying error
type CategorizedError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

func (e *CategorizedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the operation unchanged may succeed.
// Only transport failures qualify; config, validation and I/O errors need a fix first.
func (e *CategorizedError) Retryable() bool {
	return e.Category == CategoryTransport
}

// NewConfigError reports a missing or invalid parameter. The caller must fix it; never retry.
func NewConfigError(format string, args ...interface{}) error {
	return &CategorizedError{Category: CategoryConfig, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports a malformed URL or key
func NewValidationError(format string, args ...interface{}) error {
	return &CategorizedError{Category: CategoryValidation, Message: fmt.Sprintf(format, args...)}
}

// NewIOError wraps a filesystem or download failure
func NewIOError(err error, format string, args ...interface{}) error {
	return &CategorizedError{Category: CategoryIO, Message: fmt.Sprintf(format, args...), Err: err}
}

// CategoryOf extracts the category of err, or CategoryNone when err is not categorized
func CategoryOf(err error) ErrorCategory {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryNone
}

// IsConfigError reports whether err belongs to CategoryConfig
func IsConfigError(err error) bool {
	return CategoryOf(err) == CategoryConfig
}

// IsValidationError reports whether err belongs to CategoryValidation
func IsValidationError(err error) bool {
	return CategoryOf(err) == CategoryValidation
}

// IsIOError reports whether err belongs to CategoryIO
func IsIOError(err error) bool {
	return CategoryOf(err) == CategoryIO
}
