package domain

import (
	"fmt"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for the failure scenarios the API surfaces. Parse and data
// failures are recovered locally with safe defaults and never reach the
// user.
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrAnalysisFailed = "ANALYSIS_FAILED"
	ErrDatabaseError  = "DATABASE_ERROR"
)

// MsgAnalysisFailed is the user-facing retry message. Transport and model
// failures collapse to this one generic message; diagnostic detail is
// appended only in debug mode.
const MsgAnalysisFailed = "Failed to analyze image. Please try again."

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// AnalysisError wraps an external-call failure behind the generic retry
// message. The cause stays attached for logs and debug-mode responses.
type AnalysisError struct {
	cause error
}

// NewAnalysisError wraps a transport or model failure.
func NewAnalysisError(cause error) *AnalysisError {
	return &AnalysisError{cause: cause}
}

// Error returns the user-facing message, never the cause.
func (e *AnalysisError) Error() string {
	return MsgAnalysisFailed
}

// Unwrap exposes the underlying failure for logging and debug output.
func (e *AnalysisError) Unwrap() error {
	return e.cause
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
