// Package errors provides the portal's typed error taxonomy and its mappings to
// HTTP statuses and BPMN error codes.
package errors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeTermsNotAccepted ErrorCode = "TERMS_NOT_ACCEPTED"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnknownLoanType  ErrorCode = "UNKNOWN_LOAN_TYPE"

	ErrCodeCRMRemoteRejected   ErrorCode = "CRM_REMOTE_REJECTED"
	ErrCodeCRMTransportFailure ErrorCode = "CRM_TRANSPORT_FAILURE"

	ErrCodeLocalPersistenceFailed ErrorCode = "LOCAL_PERSISTENCE_FAILED"

	ErrCodeSubmissionInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the error this one was built from, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// FieldErrors returns the per-field validation messages, if present.
func (e *StandardError) FieldErrors() map[string]string {
	if e.Metadata == nil {
		return nil
	}
	fields, _ := e.Metadata["fields"].(map[string]string)
	return fields
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewTermsNotAcceptedError blocks a submission before any network call.
func NewTermsNotAcceptedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTermsNotAccepted,
		Message:   "Please accept the terms and conditions",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError carries one message per offending field.
func NewValidationError(fields map[string]string) *StandardError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Application data failed validation",
		Details:   fmt.Sprintf("invalid fields: %s", strings.Join(names, ", ")),
		Retryable: false,
		Metadata:  map[string]interface{}{"fields": fields},
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownLoanTypeError(loanType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownLoanType,
		Message:   "Unknown loan type",
		Details:   fmt.Sprintf("loanType: %s", loanType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteRejectedError is a non-2xx CRM response. Not retried.
func NewRemoteRejectedError(statusCode int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMRemoteRejected,
		Message:   fmt.Sprintf("CRM Server Error: %d - %s", statusCode, body),
		Details:   body,
		Retryable: false,
		Metadata: map[string]interface{}{
			"statusCode": statusCode,
			"body":       body,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportFailureError wraps the original transport error so callers can
// still match it with errors.Is / errors.As.
func NewTransportFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMTransportFailure,
		Message:   "Could not reach the CRM service",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewLocalPersistenceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLocalPersistenceFailed,
		Message:   "Local fallback write failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewSubmissionInFlightError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInFlight,
		Message:   "A submission is already in progress",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewRateLimitedError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many submissions, please try again shortly",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInputParsingError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Failed to parse input",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Normalize returns err as a *StandardError, wrapping unknown errors as
// INTERNAL_ERROR. nil stays nil.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err is a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return As(err, &stdErr) && stdErr.Code == code
}

// ==========================
// 4. Mappings
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeTermsNotAccepted:       "TERMS_NOT_ACCEPTED",
	ErrCodeValidationFailed:       "APPLICATION_VALIDATION_FAILED",
	ErrCodeUnknownLoanType:        "UNKNOWN_LOAN_TYPE",
	ErrCodeCRMRemoteRejected:      "CRM_REJECTED",
	ErrCodeCRMTransportFailure:    "CRM_UNAVAILABLE",
	ErrCodeLocalPersistenceFailed: "LOCAL_PERSISTENCE_FAILED",
	ErrCodeSubmissionInFlight:     "SUBMISSION_IN_FLIGHT",
	ErrCodeInputParsingFailed:     "INPUT_PARSING_FAILED",
}

// GetRetryCount returns the workflow retry budget for a code. Submissions are
// never retried: a retry would create a second lead.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSubmissionInFlight, ErrCodeRateLimited:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError for the workflow engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps a code to the status the portal API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeTermsNotAccepted, ErrCodeValidationFailed, ErrCodeUnknownLoanType:
		return http.StatusUnprocessableEntity
	case ErrCodeInputParsingFailed:
		return http.StatusBadRequest
	case ErrCodeCRMRemoteRejected:
		return http.StatusBadGateway
	case ErrCodeCRMTransportFailure:
		return http.StatusServiceUnavailable
	case ErrCodeSubmissionInFlight:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TERMS"), strings.Contains(codeStr, "VALIDATION"),
		strings.Contains(codeStr, "LOAN_TYPE"), strings.Contains(codeStr, "PARSING"):
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "CRM_"):
		return "CRM"
	case strings.Contains(codeStr, "PERSISTENCE"):
		return "STORAGE"
	case strings.Contains(codeStr, "IN_FLIGHT"), strings.Contains(codeStr, "RATE"):
		return "THROTTLE"
	default:
		return "OTHER"
	}
}
