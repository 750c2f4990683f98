// Package errors defines the service error taxonomy shared by handlers and
// middleware. Every error that reaches an HTTP boundary is mapped to a
// ServiceError carrying a stable code and status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class in API responses.
type Code string

const (
	CodeValidation          Code = "validation_error"
	CodeUnauthorized        Code = "unauthorized"
	CodeForbidden           Code = "forbidden"
	CodeNotFound            Code = "not_found"
	CodeInsufficientCredits Code = "insufficient_credits"
	CodeRateLimited         Code = "rate_limited"
	CodeProviderFailure     Code = "provider_failure"
	CodeInternal            Code = "internal_error"
)

// ServiceError is an error with an HTTP status and machine-readable code.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a detail entry and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// BadRequest builds a 400 validation error.
func BadRequest(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// NotFound builds a 404 error.
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// InsufficientCredits builds the 403 returned when the monthly allowance
// cannot cover a requested deduction.
func InsufficientCredits(remaining int) *ServiceError {
	e := &ServiceError{
		Code:       CodeInsufficientCredits,
		Message:    "insufficient credits for this generation",
		HTTPStatus: http.StatusForbidden,
	}
	return e.WithDetails("remaining", remaining)
}

// RateLimitExceeded builds a 429 error.
func RateLimitExceeded(limit int, window string) *ServiceError {
	e := &ServiceError{
		Code:       CodeRateLimited,
		Message:    "rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
	}
	e.WithDetails("limit", limit)
	return e.WithDetails("window", window)
}

// ProviderFailure builds a 500 error for upstream AI provider failures.
func ProviderFailure(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeProviderFailure, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// Internal builds a generic 500 error.
func Internal(message string, cause error) *ServiceError {
	if message == "" {
		message = "internal server error"
	}
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// InvalidToken builds a 401 for a token that failed verification.
func InvalidToken(cause error) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: "invalid token", HTTPStatus: http.StatusUnauthorized, cause: cause}
}

// GetServiceError returns the ServiceError wrapped anywhere in err's chain,
// or nil when there is none.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
