package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable code surfaced in error responses.
type ErrorCode string

const (
	CodeUnauthorized    ErrorCode = "unauthorized"
	CodeMissingTenant   ErrorCode = "missing_tenant"
	CodeInvalidPayload  ErrorCode = "invalid_payload"
	CodeRateLimited     ErrorCode = "rate_limited"
	CodeFeatureDisabled ErrorCode = "feature_disabled"
	CodeNotFound        ErrorCode = "not_found"
	CodeForbidden       ErrorCode = "forbidden"
	CodeUnexpected      ErrorCode = "unexpected"
)

// FieldError describes a single validation failure within a payload.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the typed error carried across layer boundaries. Handlers map it
// onto an HTTP status and a JSON envelope; everything that is not an *Error
// is treated as CodeUnexpected.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// AsError extracts a typed *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Unauthorized covers missing, malformed, signature-invalid and expired
// credentials. Always 401; never retried.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

// MissingTenant is deliberately 400 rather than 401: at this layer a
// mistyped API key is indistinguishable from an absent one.
func MissingTenant() *Error {
	return &Error{Code: CodeMissingTenant, Status: http.StatusBadRequest, Message: "missing tenantId"}
}

// InvalidPayload carries per-field detail for schema validation failures.
func InvalidPayload(fields []FieldError) *Error {
	return &Error{
		Code:    CodeInvalidPayload,
		Status:  http.StatusBadRequest,
		Message: "payload validation failed",
		Fields:  fields,
	}
}

func RateLimited() *Error {
	return &Error{Code: CodeRateLimited, Status: http.StatusTooManyRequests, Message: "rate limit exceeded"}
}

func FeatureDisabled(feature string) *Error {
	return &Error{
		Code:    CodeFeatureDisabled,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("feature %q is not available", feature),
	}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: message}
}

// Unexpected wraps an internal failure. The wrapped cause is logged, never
// serialized into production responses.
func Unexpected(cause error) *Error {
	return &Error{
		Code:    CodeUnexpected,
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		cause:   cause,
	}
}
