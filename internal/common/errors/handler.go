// internal/common/errors/handler.go
package errors

import (
	"net/http"
	"time"
)

// ErrorHandler normalizes arbitrary errors into StandardError values and
// maps them onto HTTP responses.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Normalize ensures we always have a StandardError.
func (h *ErrorHandler) Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps an error code to the status the API surface returns.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeSessionNotFound, ErrCodeCustomerNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidRequest, ErrCodeDocumentUnreadable:
		return http.StatusBadRequest
	case ErrCodePreconditionMissing:
		return http.StatusConflict
	case ErrCodeCollaboratorFailure, ErrCodeBureauUnavailable:
		return http.StatusBadGateway
	case ErrCodeDatabaseConnectionFailed, ErrCodeQueryExecutionFailed, ErrCodeSessionStoreFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Report logs the error and returns the normalized form plus the HTTP
// status the caller should respond with.
func (h *ErrorHandler) Report(sessionID string, err error) (*StandardError, int) {
	stdErr := h.Normalize(err)
	h.logger.Error("Request failed", map[string]interface{}{
		"sessionId":     sessionID,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
	return stdErr, HTTPStatus(stdErr.Code)
}
