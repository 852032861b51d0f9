// Package errors provides structured error handling with context propagation and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeConfiguration indicates the process is misconfigured (HTTP 500)
	TypeConfiguration ErrorType = "configuration"
	// TypeValidation indicates missing or malformed headers or body (HTTP 403)
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates no matching subscription (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeAuthentication indicates a failed signature or secret check (HTTP 403)
	TypeAuthentication ErrorType = "authentication"
	// TypeInternal indicates an unexpected store or crypto failure (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and context.
// Context is for logs only and is never sent to the caller.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation, TypeAuthentication:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
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

// ConfigurationError creates a new configuration error (HTTP 500).
func ConfigurationError(message string, cause error) *Error {
	return newError(TypeConfiguration, message, cause)
}

// ValidationError creates a new validation error (HTTP 403).
func ValidationError(message string, cause error) *Error {
	return newError(TypeValidation, message, cause)
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string, cause error) *Error {
	return newError(TypeNotFound, message, cause)
}

// AuthenticationError creates a new authentication error (HTTP 403).
func AuthenticationError(message string, cause error) *Error {
	return newError(TypeAuthentication, message, cause)
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Error string    `json:"error"`
	Type  ErrorType `json:"type"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Type:  e.Type,
	}
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an internal error.
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
