package codec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/assistant/watson"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/identity"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/pipeline"
)

func TestToCanonicalError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   domain.ErrorType
		wantCode   domain.ErrorCode
		wantStatus int
	}{
		{
			name:       "api error passes through",
			err:        domain.ErrInvalidSession("abc"),
			wantType:   domain.ErrorTypeInvalidRequest,
			wantCode:   domain.ErrorCodeInvalidSession,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrapped processor failure",
			err:        &pipeline.StageError{Stage: "rhel_lightspeed", Err: domain.ErrProcessorFailure("down")},
			wantType:   domain.ErrorTypeProcessorFailure,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "malformed identity",
			err:        fmt.Errorf("decode: %w", identity.ErrMalformedIdentity),
			wantType:   domain.ErrorTypeInvalidRequest,
			wantCode:   domain.ErrorCodeInvalidIdentity,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported identity",
			err:        &identity.UnsupportedIdentityTypeError{Type: "Associate"},
			wantType:   domain.ErrorTypeInvalidRequest,
			wantCode:   domain.ErrorCodeUnsupportedAccount,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing command field",
			err:        &watson.MissingCommandFieldError{Field: "name", Text: "/create_service_account"},
			wantType:   domain.ErrorTypeInvalidRequest,
			wantCode:   domain.ErrorCodeMissingCommandArg,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "deadline",
			err:        fmt.Errorf("call: %w", context.DeadlineExceeded),
			wantType:   domain.ErrorTypeBackendUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantType:   domain.ErrorTypeServer,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToCanonicalError(tt.err)
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.HTTPStatusCode() != tt.wantStatus {
				t.Errorf("HTTPStatusCode() = %d, want %d", got.HTTPStatusCode(), tt.wantStatus)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, domain.ErrAuthentication("Invalid x-rh-identity"))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 1 || body["message"] != "Invalid x-rh-identity" {
		t.Errorf("body = %v", body)
	}
}
