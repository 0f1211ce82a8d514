// Package errors provides standardized error handling for the loan
// conversation pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeCustomerNotFound ErrorCode = "CUSTOMER_NOT_FOUND"

	ErrCodePreconditionMissing ErrorCode = "PRECONDITION_MISSING"
	ErrCodeInvariantViolation  ErrorCode = "INVARIANT_VIOLATION"
	ErrCodeStageRegression     ErrorCode = "STAGE_REGRESSION"
	ErrCodeStepLimitExceeded   ErrorCode = "STEP_LIMIT_EXCEEDED"

	ErrCodeCollaboratorFailure ErrorCode = "COLLABORATOR_FAILURE"
	ErrCodeBureauUnavailable   ErrorCode = "BUREAU_UNAVAILABLE"
	ErrCodeDocumentUnreadable  ErrorCode = "DOCUMENT_UNREADABLE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSessionStoreFailed       ErrorCode = "SESSION_STORE_FAILED"

	ErrCodeArchiveWriteFailed ErrorCode = "ARCHIVE_WRITE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from any error, or empty if it is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Code
	}
	return ""
}

// ==========================
// 2. Error Constructors
// ==========================

// NewSessionNotFoundError creates a non-retryable session lookup error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCustomerNotFoundError creates a non-retryable customer lookup error.
func NewCustomerNotFoundError(customerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCustomerNotFound,
		Message:   "Customer not found in CRM",
		Details:   fmt.Sprintf("customerId: %s", customerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreconditionMissingError creates a non-retryable precondition error.
// It is raised when a decision unit is dispatched before the state it
// depends on has been populated.
func NewPreconditionMissingError(unit, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePreconditionMissing,
		Message:   fmt.Sprintf("Unit '%s' dispatched without its preconditions", unit),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvariantViolationError creates a non-retryable invariant error.
func NewInvariantViolationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvariantViolation,
		Message:   "Conversation state invariant violated",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageRegressionError creates a non-retryable stage ordering error.
func NewStageRegressionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStageRegression,
		Message:   "Attempted backward stage transition",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepLimitExceededError creates a non-retryable dispatch loop error.
func NewStepLimitExceededError(sessionID string, limit int) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepLimitExceeded,
		Message:   "Dispatch loop exceeded its iteration cap",
		Details:   fmt.Sprintf("sessionId: %s, limit: %d", sessionID, limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCollaboratorFailureError creates a retryable collaborator error.
func NewCollaboratorFailureError(collaborator string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCollaboratorFailure,
		Message:   fmt.Sprintf("Collaborator '%s' call failed", collaborator),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBureauUnavailableError creates a retryable credit bureau error.
func NewBureauUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBureauUnavailable,
		Message:   "Credit bureau lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentUnreadableError creates a non-retryable document parsing error.
func NewDocumentUnreadableError(document, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentUnreadable,
		Message:   "Uploaded document could not be parsed",
		Details:   fmt.Sprintf("document: %s, %s", document, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreFailedError creates a retryable session store error.
func NewSessionStoreFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Session store operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewArchiveWriteFailedError creates a retryable transcript archive error.
func NewArchiveWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeArchiveWriteFailed,
		Message:   "Transcript archive write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable request validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSessionStoreFailed,
		ErrCodeArchiveWriteFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeCollaboratorFailure,
		ErrCodeBureauUnavailable:
		return 2

	default:
		return 0 // Business and invariant errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsFatal reports whether a code must abort the conversation turn rather
// than surface as a polite assistant reply.
func IsFatal(code ErrorCode) bool {
	switch code {
	case ErrCodeInvariantViolation, ErrCodeStageRegression, ErrCodeStepLimitExceeded:
		return true
	default:
		return false
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	case strings.Contains(codeStr, "INVARIANT") || strings.Contains(codeStr, "STAGE") || strings.Contains(codeStr, "STEP_LIMIT") || strings.Contains(codeStr, "PRECONDITION"):
		return "PIPELINE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "STORE"):
		return "DATABASE"
	case strings.Contains(codeStr, "COLLABORATOR") || strings.Contains(codeStr, "BUREAU") || strings.Contains(codeStr, "EXTERNAL"):
		return "COLLABORATOR"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "DOCUMENT"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
