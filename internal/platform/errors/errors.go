// Package errors provides structured errors that carry a category, a stable
// machine-readable reason and log context, and map onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the category of an error. It selects the HTTP status and the log level.
type ErrorType string

const (
	// TypeValidation indicates malformed or missing input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates a missing resource (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeConflict indicates a resource conflict (HTTP 409)
	TypeConflict ErrorType = "conflict"
	// TypeRateLimited indicates the caller exceeded an admission ceiling (HTTP 429)
	TypeRateLimited ErrorType = "rate_limited"
	// TypeInternal indicates a server-side failure (HTTP 500)
	TypeInternal ErrorType = "internal"
	// TypeUnavailable indicates a dependency is down (HTTP 503)
	TypeUnavailable ErrorType = "unavailable"
)

// Error is a categorised error with an optional reason code and context.
type Error struct {
	Type    ErrorType
	Message string
	// Reason is a stable code clients can switch on, e.g. "VotingClosed".
	Reason string
	// Status overrides the status derived from Type when non-zero.
	Status    int
	Retryable bool
	Cause     error
	Context   map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code for this error.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}

	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeRateLimited:
		return http.StatusTooManyRequests
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return newError(TypeNotFound, message, nil)
}

// ConflictError creates a new conflict error (HTTP 409).
func ConflictError(message string) *Error {
	return newError(TypeConflict, message, nil)
}

// RateLimitedError creates a new admission error (HTTP 429).
func RateLimitedError(message string) *Error {
	return newError(TypeRateLimited, message, nil)
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// UnavailableError creates a retryable dependency error (HTTP 503).
func UnavailableError(message string, cause error) *Error {
	err := newError(TypeUnavailable, message, cause)
	err.Retryable = true
	return err
}

// WithReason sets the machine-readable reason (chainable).
func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

// WithStatus overrides the HTTP status (chainable).
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// AsRetryable marks the error as safe to retry by the caller (chainable).
func (e *Error) AsRetryable() *Error {
	e.Retryable = true
	return e
}

// WithField adds a context field to the error (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse is the JSON body sent to clients.
type ErrorResponse struct {
	Error     string         `json:"error"`
	Type      ErrorType      `json:"type"`
	Reason    string         `json:"reason,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse. Internal errors never
// expose their context to clients.
func (e *Error) ToResponse() ErrorResponse {
	resp := ErrorResponse{
		Error:     e.Message,
		Type:      e.Type,
		Reason:    e.Reason,
		Retryable: e.Retryable,
	}
	if e.Type != TypeInternal && len(e.Context) > 0 {
		resp.Context = e.Context
	}
	return resp
}

// AsStructuredError converts any error into a structured Error.
// If err already is (or wraps) an *Error, that one is returned.
// Otherwise it is wrapped as an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}
