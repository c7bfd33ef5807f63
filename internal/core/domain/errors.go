// Package domain holds the canonical types shared by every layer of the
// assistant service: response entries, sessions, turn inputs and outputs,
// and the API error taxonomy.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request,
	// including input the dialogue engine rejected.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuthentication indicates a missing or unreadable identity.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypeBackendUnavailable indicates the dialogue engine could not be reached.
	ErrorTypeBackendUnavailable ErrorType = "backend_unavailable"

	// ErrorTypeProcessorFailure indicates a response processor's upstream call failed.
	ErrorTypeProcessorFailure ErrorType = "processor_failure"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeInvalidIdentity    ErrorCode = "invalid_identity"
	ErrorCodeInvalidSession     ErrorCode = "invalid_session"
	ErrorCodeMissingCommandArg  ErrorCode = "missing_command_field"
	ErrorCodeUnsupportedAccount ErrorCode = "unsupported_identity_type"
)

// APIError represents a canonical API error. Only the HTTP layer turns it
// into a status code and body.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// StatusCode overrides the status derived from Type
	StatusCode int `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeBackendUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeProcessorFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return NewAPIError(ErrorTypeAuthentication, message)
}

// ErrBackendUnavailable creates an error for an unreachable dialogue engine.
func ErrBackendUnavailable(message string) *APIError {
	return NewAPIError(ErrorTypeBackendUnavailable, message)
}

// ErrProcessorFailure creates an error for a failed processor call.
func ErrProcessorFailure(message string) *APIError {
	return NewAPIError(ErrorTypeProcessorFailure, message)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}

// ErrInvalidSession is returned when a session id is unknown or owned by a
// different user. Both cases produce the same message so callers cannot probe
// for other users' sessions.
func ErrInvalidSession(sessionID string) *APIError {
	return ErrInvalidRequest("Invalid session " + sessionID).WithCode(ErrorCodeInvalidSession)
}
