// Package errors provides the standardized error taxonomy for the onboarding client.
//
// Every failure that crosses an adapter boundary is translated into a StandardError
// whose Message is safe to show to the operator and whose Details keep the raw cause.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeStepValidationFailed ErrorCode = "STEP_VALIDATION_FAILED"
	ErrCodeAttachmentRejected   ErrorCode = "ATTACHMENT_REJECTED"

	ErrCodeDraftSaveFailed  ErrorCode = "DRAFT_SAVE_FAILED"
	ErrCodeCompletionFailed ErrorCode = "COMPLETION_FAILED"
	ErrCodeBootstrapFailed  ErrorCode = "BOOTSTRAP_FAILED"

	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeSessionMissing   ErrorCode = "SESSION_MISSING"
	ErrCodeSessionExpired   ErrorCode = "SESSION_EXPIRED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInvalidResponse ErrorCode = "INVALID_RESPONSE"
	ErrCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
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
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewStepValidationFailedError reports local field errors for a wizard step.
func NewStepValidationFailedError(step int, fields map[string]string) *StandardError {
	e := newError(ErrCodeStepValidationFailed, "Please fix the highlighted fields", nil, false)
	e.Details = fmt.Sprintf("step: %d, fields: %d", step, len(fields))
	e.WithMetadata("step", step)
	e.WithMetadata("fields", fields)
	return e
}

// NewAttachmentRejectedError reports a logo or photo that breaks the upload rules.
func NewAttachmentRejectedError(field, reason string) *StandardError {
	e := newError(ErrCodeAttachmentRejected, reason, nil, false)
	e.Details = fmt.Sprintf("field: %s", field)
	return e.WithMetadata("field", field)
}

// NewDraftSaveFailedError wraps a failed draft persist.
func NewDraftSaveFailedError(err error) *StandardError {
	return newError(ErrCodeDraftSaveFailed, "Your progress could not be saved. Please try again.", err, true)
}

// NewCompletionFailedError wraps a failed final submission.
func NewCompletionFailedError(err error) *StandardError {
	return newError(ErrCodeCompletionFailed, "Onboarding could not be completed. Your data was kept, please retry.", err, true)
}

// NewBootstrapFailedError wraps any non not-found failure while loading the wizard.
func NewBootstrapFailedError(stage string, err error) *StandardError {
	e := newError(ErrCodeBootstrapFailed, "The onboarding information could not be loaded. Reload to try again.", err, true)
	return e.WithMetadata("stage", stage)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	e := newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), nil, false)
	e.Details = details
	return e
}

func NewUnauthorizedError(details string) *StandardError {
	e := newError(ErrCodeUnauthorized, "Your session has ended. Please log in again.", nil, false)
	e.Details = details
	return e
}

func NewSessionMissingError() *StandardError {
	return newError(ErrCodeSessionMissing, "You need to log in first.", nil, false)
}

func NewSessionExpiredError(expiredAt time.Time) *StandardError {
	e := newError(ErrCodeSessionExpired, "Your session has expired. Please log in again.", nil, false)
	e.Details = fmt.Sprintf("expiredAt: %s", expiredAt.UTC().Format(time.RFC3339))
	return e
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err, true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err, true)
}

func NewInvalidResponseError(service string, err error) *StandardError {
	return newError(ErrCodeInvalidResponse, fmt.Sprintf("Service '%s' returned an unexpected response", service), err, false)
}

func NewInvalidRequestError(details string) *StandardError {
	e := newError(ErrCodeInvalidRequest, "The request could not be built", nil, false)
	e.Details = details
	return e
}

// NewFormValidationError reports locally rejected form input (login, registration).
func NewFormValidationError(message string, fields map[string]string) *StandardError {
	e := newError(ErrCodeInvalidRequest, message, nil, false)
	e.Details = fmt.Sprintf("fields: %d", len(fields))
	return e.WithMetadata("fields", fields)
}

// FromHTTPStatus maps a backend status code and body message to a StandardError.
func FromHTTPStatus(service string, status int, message string) *StandardError {
	detail := fmt.Sprintf("status %d", status)
	if message != "" {
		detail = fmt.Sprintf("status %d: %s", status, message)
	}

	switch {
	case status == http.StatusNotFound:
		return NewResourceNotFoundError(service, detail)
	case status == http.StatusUnauthorized:
		return NewUnauthorizedError(detail)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewTimeoutError(service, stderrors.New(detail))
	case status >= 500:
		return NewExternalServiceError(service, stderrors.New(detail))
	default:
		e := newError(ErrCodeInvalidRequest, firstNonEmpty(message, "The request was rejected"), nil, false)
		e.Details = detail
		return e
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard extracts a StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsCode reports whether any StandardError in the chain carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var stdErr *StandardError
		if !stderrors.As(err, &stdErr) {
			return false
		}
		if stdErr.Code == code {
			return true
		}
		err = stdErr.cause
	}
	return false
}

// IsNotFound reports a backend "not found" anywhere in the chain.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeResourceNotFound)
}

// IsUnauthorized reports a rejected credential anywhere in the chain.
func IsUnauthorized(err error) bool {
	return IsCode(err, ErrCodeUnauthorized) || IsCode(err, ErrCodeSessionExpired) || IsCode(err, ErrCodeSessionMissing)
}

// UserMessage returns the text to show the operator for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if stdErr, ok := AsStandard(err); ok && stdErr.Message != "" {
		return stdErr.Message
	}
	return "Something went wrong. Please try again."
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "ATTACHMENT") || strings.Contains(codeStr, "INVALID_REQUEST"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "UNAUTHORIZED"):
		return "AUTH"
	case strings.Contains(codeStr, "DRAFT") || strings.Contains(codeStr, "COMPLETION") || strings.Contains(codeStr, "BOOTSTRAP"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT") || strings.Contains(codeStr, "RESPONSE"):
		return "TRANSPORT"
	default:
		return "OTHER"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
