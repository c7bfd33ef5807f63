package runtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/assistant/echo"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/identity"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/pkg/config"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/server"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.Server.Port = 0
	cfg.Assistant.Type = "echo"
	cfg.Session.Storage = "memory"
	cfg.Lightspeed.Enabled = false
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func postTalk(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(identity.HeaderName, identity.FixedToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestService_New_RequiredOptions(t *testing.T) {
	// Should fail without config
	_, err := New()
	if err == nil {
		t.Fatal("Expected error without config")
	}
	if err.Error() != "config required (use WithConfig or WithConfigFile)" {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestService_New_WithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
server:
  port: 0
  base_url: /api/va
session:
  storage: sqlite
  sqlite_path: `+filepath.Join(t.TempDir(), "sessions.db")+`
`)

	svc, err := New(WithConfigFile(path), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	if svc.sessions == nil || svc.assistant == nil || svc.chain == nil {
		t.Fatal("Expected defaults to be built from config")
	}

	rec := postTalk(t, svc.Handler(), "/api/va/talk", `{"input": {"text": "hello world"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestService_New_InvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "assistant:\n  type: parrot\n")

	if _, err := New(WithConfigFile(path)); err == nil {
		t.Error("Expected error for unknown assistant type")
	}
}

func TestService_Routes(t *testing.T) {
	svc, err := New(WithConfig(testConfig(t)), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	tests := []struct {
		name     string
		method   string
		path     string
		identity bool
		status   int
	}{
		{"health", http.MethodGet, server.HealthPath, false, http.StatusOK},
		{"talk", http.MethodPost, "/api/virtual-assistant/v2/talk", true, http.StatusOK},
		{"talk without identity", http.MethodPost, "/api/virtual-assistant/v2/talk", false, http.StatusUnauthorized},
		{"talk outside base url", http.MethodPost, "/talk", true, http.StatusNotFound},
		{"talk wrong method", http.MethodGet, "/api/virtual-assistant/v2/talk", true, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"input": {"text": "hi"}}`))
			if tt.identity {
				req.Header.Set(identity.HeaderName, identity.FixedToken)
			}
			rec := httptest.NewRecorder()
			svc.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

// commandAssistant answers every turn with a lightspeed command.
type commandAssistant struct {
	echo.Assistant
}

func (a *commandAssistant) SendMessage(ctx context.Context, in domain.AssistantInput, actx domain.AssistantContext) (*domain.AssistantOutput, error) {
	return &domain.AssistantOutput{
		SessionID: in.SessionID,
		UserID:    in.UserID,
		Response: []domain.Entry{
			&domain.TextEntry{Text: "Let me check."},
			&domain.CommandEntry{Command: "lightspeed", Args: []string{"rhel"}},
		},
	}, nil
}

func TestService_LightspeedChain(t *testing.T) {
	var gotIdentity atomic.Value
	lightspeed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/lightspeed/v1/infer" {
			http.NotFound(w, r)
			return
		}
		gotIdentity.Store(r.Header.Get(identity.HeaderName))
		var req struct {
			Question string `json:"question"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"text": "answer to " + req.Question},
		})
	}))
	defer lightspeed.Close()

	cfg := testConfig(t)
	cfg.Lightspeed.Enabled = true
	cfg.Lightspeed.URL = lightspeed.URL
	cfg.Platform.Request = "platform"

	svc, err := New(
		WithConfig(cfg),
		WithLogger(testLogger()),
		WithAssistant(&commandAssistant{}),
		WithSessionStore(memory.New(time.Hour)),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	rec := postTalk(t, svc.Handler(), "/api/virtual-assistant/v2/talk", `{"input": {"text": "how do I update rhel"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp domain.TalkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Response) != 2 {
		t.Fatalf("len(response) = %d, want 2", len(resp.Response))
	}
	text, ok := resp.Response[1].(*domain.TextEntry)
	if !ok || text.Text != "answer to how do I update rhel" {
		t.Errorf("response[1] = %#v", resp.Response[1])
	}
	if gotIdentity.Load() != identity.FixedToken {
		t.Errorf("lightspeed got identity %v", gotIdentity.Load())
	}
}

func TestService_Watson(t *testing.T) {
	var tokenRequests atomic.Int32
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/identity/token":
			tokenRequests.Add(1)
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "iam-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case r.Header.Get("Authorization") != "Bearer iam-token":
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","code":401}`))
		case r.URL.Path == "/v2/assistants/env-1/environments/env-1/sessions":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"session_id":"watson-session"}`))
		case r.URL.Path == "/v2/assistants/env-1/environments/env-1/sessions/watson-session/message":
			w.Write([]byte(`{"output":{"generic":[{"response_type":"text","text":"Hi from watson"}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer fake.Close()

	cfg := testConfig(t)
	cfg.Assistant.Type = "watson"
	cfg.Watson.APIURL = fake.URL
	cfg.Watson.APIKey = "api-key"
	cfg.Watson.IAMURL = fake.URL + "/identity/token"
	cfg.Watson.EnvironmentID = "env-1"

	svc, err := New(WithConfig(cfg), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	for i := 0; i < 2; i++ {
		body := `{"input": {"text": "hello"}}`
		if i == 1 {
			body = `{"session_id": "watson-session", "input": {"text": "again"}}`
		}
		rec := postTalk(t, svc.Handler(), "/api/virtual-assistant/v2/talk", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("turn %d: status = %d, body = %s", i, rec.Code, rec.Body.String())
		}

		var resp domain.TalkResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.SessionID != "watson-session" {
			t.Errorf("session_id = %q", resp.SessionID)
		}
		if len(resp.Response) != 1 {
			t.Fatalf("len(response) = %d, want 1", len(resp.Response))
		}
		if text, ok := resp.Response[0].(*domain.TextEntry); !ok || text.Text != "Hi from watson" {
			t.Errorf("response[0] = %#v", resp.Response[0])
		}
	}

	if n := tokenRequests.Load(); n != 1 {
		t.Errorf("IAM token requested %d times, want 1", n)
	}
}

func TestService_Start_And_Shutdown(t *testing.T) {
	svc, err := New(WithConfig(testConfig(t)), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if svc.Addr() != "" {
		t.Error("Expected no address before Start")
	}

	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Start(ctx); err == nil {
		t.Error("Expected error starting twice")
	}

	_, port, err := net.SplitHostPort(svc.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort(%q): %v", svc.Addr(), err)
	}
	resp, err := http.Get("http://127.0.0.1:" + port + server.HealthPath)
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
