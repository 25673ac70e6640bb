// Package errors defines stable error codes for all attribution failure modes.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ProviderFailed indicates a single evidence provider failed; scans
	// treat this as zero evidence from that provider, never a hard failure
	ProviderFailed ErrorCode = "PROVIDER_FAILED"
	// ExplainerFailed indicates the synthesis call failed or timed out
	ExplainerFailed ErrorCode = "EXPLAINER_FAILED"
	// JobNotFound indicates progress/control was requested for an expired
	// or unknown job id; callers should start a new scan
	JobNotFound ErrorCode = "JOB_NOT_FOUND"
	// JobLimit indicates the deep-scan concurrency ceiling was reached
	JobLimit ErrorCode = "JOB_LIMIT"
	// BudgetExceeded indicates a quick scan could not complete the minimum
	// provider set within its wall-clock budget
	BudgetExceeded ErrorCode = "BUDGET_EXCEEDED"
	// CacheFailed indicates a cache read or write failed
	CacheFailed ErrorCode = "CACHE_FAILED"
	// InvalidAction indicates an unrecognized job control action
	InvalidAction ErrorCode = "INVALID_ACTION"
	// ExportFailed indicates result export failed
	ExportFailed ErrorCode = "EXPORT_FAILED"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AttribError carries a stable code, a human message and an optional cause.
type AttribError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new AttribError
func New(code ErrorCode, message string, cause error) *AttribError {
	return &AttribError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *AttribError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AttribError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AttribError) WithDetails(details interface{}) *AttribError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError if err is not
// an AttribError.
func CodeOf(err error) ErrorCode {
	var ae *AttribError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// JobNotFoundError builds the retryable "start a new scan" condition.
func JobNotFoundError(jobID string) *AttribError {
	return New(JobNotFound, "no active job with id "+jobID+"; start a new scan", nil)
}

// JobLimitError signals that new deep scans should be retried later.
func JobLimitError(active, ceiling int) *AttribError {
	e := New(JobLimit, "deep scan limit reached, retry later", nil)
	return e.WithDetails(map[string]int{"active": active, "ceiling": ceiling})
}
