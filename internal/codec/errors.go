// Package codec provides error conversion utilities for mapping internal
// errors to canonical domain errors and writing them to clients.
package codec

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/assistant/watson"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/identity"
)

// ErrorResponse is a serialized error ready to be written.
type ErrorResponse struct {
	StatusCode int
	Body       []byte
}

// errorBody is the client-facing error shape.
type errorBody struct {
	Message string `json:"message"`
}

// ToCanonicalError converts any error to a domain.APIError.
// If the error is already a domain.APIError, it returns it directly.
// Known sentinel and typed errors map to their categories; anything else
// is a generic server error.
func ToCanonicalError(err error) *domain.APIError {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var unsupported *identity.UnsupportedIdentityTypeError
	var missing *watson.MissingCommandFieldError
	switch {
	case errors.As(err, &unsupported):
		return domain.ErrInvalidRequest(err.Error()).WithCode(domain.ErrorCodeUnsupportedAccount)
	case errors.Is(err, identity.ErrMalformedIdentity):
		return domain.ErrInvalidRequest(err.Error()).WithCode(domain.ErrorCodeInvalidIdentity)
	case errors.As(err, &missing):
		return domain.ErrInvalidRequest(err.Error()).WithCode(domain.ErrorCodeMissingCommandArg)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrBackendUnavailable("request timed out")
	}

	return domain.ErrServer(err.Error())
}

// FormatError converts an error into its HTTP status and JSON body.
func FormatError(err error) *ErrorResponse {
	apiErr := ToCanonicalError(err)

	body, _ := json.Marshal(errorBody{Message: apiErr.Message})

	return &ErrorResponse{
		StatusCode: apiErr.HTTPStatusCode(),
		Body:       body,
	}
}

// WriteError writes err as a {"message": ...} response.
func WriteError(w http.ResponseWriter, err error) {
	resp := FormatError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
