package errors

import (
	"time"
)

// ErrorHandler normalizes failures at an adapter boundary and produces the banner text
// shown to the operator.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err with its classification and returns the user-facing message.
// operation names the action that failed ("persist-draft", "bootstrap", ...).
func (h *ErrorHandler) Handle(operation string, err error) string {
	if err == nil {
		return ""
	}
	stdErr := Normalize(err)
	h.logError(operation, stdErr)
	return stdErr.Message
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Something went wrong. Please try again.",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) logError(operation string, stdErr *StandardError) {
	if h.logger == nil {
		return
	}
	h.logger.Error("operation failed", map[string]interface{}{
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"metadata":      stdErr.Metadata,
	})
}
