package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// IsServiceError checks if an error is a service error
func IsServiceError(err error) bool {
	var se ServiceError
	return errors.As(err, &se)
}

// GetServiceError extracts a ServiceError from an error
func GetServiceError(err error) (ServiceError, bool) {
	var se ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return ServiceError{}, false
}

// HasErrorCode reports whether err carries the given service error code.
func HasErrorCode(err error, code string) bool {
	se, ok := GetServiceError(err)
	return ok && se.Code == code
}

// Error code constants
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInvalidFile      = "INVALID_FILE"
	ErrCodeReportNotFound   = "REPORT_NOT_FOUND"
	ErrCodeReporterNotFound = "REPORTER_NOT_FOUND"
	ErrCodeDuplicate        = "DUPLICATE_VERIFICATION"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeNotReady         = "NOT_READY"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeStorage          = "STORAGE_ERROR"
)

// Common service error constructors
func NewValidationError(message string) error {
	return ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewInvalidFileError(details string) error {
	return ServiceError{
		Code:       ErrCodeInvalidFile,
		Message:    "File rejected",
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func NewReportNotFoundError(reportID string) error {
	return ServiceError{
		Code:       ErrCodeReportNotFound,
		Message:    "Report not found",
		Details:    reportID,
		StatusCode: http.StatusNotFound,
	}
}

func NewReporterNotFoundError(reporterID string) error {
	return ServiceError{
		Code:       ErrCodeReporterNotFound,
		Message:    "Reporter not found",
		Details:    reporterID,
		StatusCode: http.StatusNotFound,
	}
}

func NewDuplicateVerificationError(verifierID string) error {
	return ServiceError{
		Code:       ErrCodeDuplicate,
		Message:    "Verifier has already verified this report",
		Details:    verifierID,
		StatusCode: http.StatusConflict,
	}
}

func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       ErrCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewNotReadyError marks an operation invoked before its required subsystem
// has initialized; callers must fail fast rather than proceed with defaults.
func NewNotReadyError(subsystem string) error {
	return ServiceError{
		Code:       ErrCodeNotReady,
		Message:    fmt.Sprintf("%s is not initialized", subsystem),
		StatusCode: http.StatusServiceUnavailable,
	}
}

func NewInternalError(message string) error {
	return ServiceError{
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewStorageError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeStorage,
		Message:    fmt.Sprintf("Storage operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// Error handling helpers
func WrapError(err error, code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StatusCode: http.StatusInternalServerError,
	}
}
