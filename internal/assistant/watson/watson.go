// Package watson drives IBM watsonx Assistant through its v2 REST API and
// normalizes its output into response entries.
package watson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
)

// actionsSkill is the skill whose variables carry the caller context.
const actionsSkill = "actions skill"

// Option configures the assistant.
type Option func(*Assistant)

// WithHTTPClient sets the client used for Watson calls. It must attach
// credentials itself; see NewHTTPClient.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Assistant) {
		a.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// WithDraft targets the draft environment flag in skill variables.
func WithDraft(draft bool) Option {
	return func(a *Assistant) {
		a.draft = draft
	}
}

// Config identifies the Watson instance.
type Config struct {
	URL           string
	AssistantID   string
	EnvironmentID string
	Version       string
}

// Assistant implements ports.Assistant against Watson.
type Assistant struct {
	cfg        Config
	draft      bool
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Assistant = (*Assistant)(nil)

// New creates a Watson assistant.
func New(cfg Config, opts ...Option) *Assistant {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.AssistantID == "" {
		cfg.AssistantID = cfg.EnvironmentID
	}
	a := &Assistant{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewHTTPClient returns a traced client that authenticates with ts.
func NewHTTPClient(ts oauth2.TokenSource, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type messageInput struct {
	MessageType string          `json:"message_type"`
	Text        string          `json:"text"`
	Intents     []Intent        `json:"intents,omitempty"`
	Options     *messageOptions `json:"options,omitempty"`
}

type messageOptions struct {
	AlternateIntents bool `json:"alternate_intents,omitempty"`
}

type skillVariables struct {
	Draft      bool `json:"draft"`
	IsInternal bool `json:"is_internal"`
	IsOrgAdmin bool `json:"is_org_admin"`
}

type skillState struct {
	SkillVariables skillVariables `json:"skill_variables"`
}

type messageContext struct {
	Skills map[string]skillState `json:"skills"`
}

type messageRequest struct {
	Input   messageInput   `json:"input"`
	Context messageContext `json:"context"`
	UserID  string         `json:"user_id,omitempty"`
}

type messageResponse struct {
	Output struct {
		Generic  []json.RawMessage `json:"generic"`
		Intents  json.RawMessage   `json:"intents"`
		Entities json.RawMessage   `json:"entities"`
	} `json:"output"`
	UserID string `json:"user_id"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (a *Assistant) sessionsURL() string {
	return fmt.Sprintf("%s/v2/assistants/%s/environments/%s/sessions",
		a.cfg.URL, url.PathEscape(a.cfg.AssistantID), url.PathEscape(a.cfg.EnvironmentID))
}

func (a *Assistant) withVersion(u string) string {
	return u + "?" + url.Values{"version": {a.cfg.Version}}.Encode()
}

// CreateSession opens a new Watson session.
func (a *Assistant) CreateSession(ctx context.Context, userID string) (string, error) {
	body := map[string]string{}
	if userID != "" {
		body["user_id"] = userID
	}

	status, data, err := a.post(ctx, a.withVersion(a.sessionsURL()), body)
	if err != nil {
		return "", domain.ErrBackendUnavailable(fmt.Sprintf("watson create session: %v", err))
	}
	if status < 200 || status >= 300 {
		return "", domain.ErrBackendUnavailable(fmt.Sprintf("watson create session: %s", vendorMessage(status, data)))
	}

	var resp sessionResponse
	if err := json.Unmarshal(data, &resp); err != nil || resp.SessionID == "" {
		return "", domain.ErrBackendUnavailable("watson create session: malformed response")
	}
	return resp.SessionID, nil
}

// SendMessage sends one turn and normalizes the reply.
func (a *Assistant) SendMessage(ctx context.Context, in domain.AssistantInput, actx domain.AssistantContext) (*domain.AssistantOutput, error) {
	req := messageRequest{
		Input: messageInput{
			MessageType: "text",
			Text:        strings.Join(strings.Fields(in.Query.Text), " "),
		},
		UserID: in.UserID,
	}
	if in.Query.OptionID != "" {
		intents, err := parseOptionID(in.Query.OptionID)
		if err != nil {
			return nil, domain.ErrInvalidRequest(err.Error())
		}
		req.Input.Intents = intents
	}
	if in.IncludeDebug {
		req.Input.Options = &messageOptions{AlternateIntents: true}
	}
	req.Context.Skills = map[string]skillState{
		actionsSkill: {SkillVariables: skillVariables{
			Draft:      a.draft,
			IsInternal: actx.IsInternal,
			IsOrgAdmin: actx.IsOrgAdmin,
		}},
	}

	endpoint := a.withVersion(a.sessionsURL() + "/" + url.PathEscape(in.SessionID) + "/message")
	status, data, err := a.post(ctx, endpoint, req)
	if err != nil {
		return nil, domain.ErrBackendUnavailable(fmt.Sprintf("watson message: %v", err))
	}
	if status < 200 || status >= 300 {
		msg := vendorMessage(status, data)
		a.logger.WarnContext(ctx, "watson rejected message",
			slog.Int("status", status),
			slog.String("session_id", in.SessionID),
			slog.String("error", msg))
		return nil, domain.ErrInvalidRequest(msg)
	}

	var resp messageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, domain.ErrBackendUnavailable(fmt.Sprintf("watson message: decode response: %v", err))
	}

	entries, err := Normalize(resp.Output.Generic, actx.UserEmail)
	if err != nil {
		return nil, err
	}
	if skipped := len(resp.Output.Generic) - len(entries); skipped > 0 {
		a.logger.DebugContext(ctx, "skipped unsupported watson blocks",
			slog.String("session_id", in.SessionID),
			slog.Int("skipped", skipped))
	}

	out := &domain.AssistantOutput{
		SessionID: in.SessionID,
		UserID:    in.UserID,
		Response:  entries,
	}
	if in.IncludeDebug {
		debug, err := json.Marshal(struct {
			Intents  json.RawMessage `json:"intents"`
			Entities json.RawMessage `json:"entities"`
		}{nullIfEmpty(resp.Output.Intents), nullIfEmpty(resp.Output.Entities)})
		if err != nil {
			return nil, fmt.Errorf("encode debug output: %w", err)
		}
		out.DebugOutput = debug
	}
	return out, nil
}

func (a *Assistant) post(ctx context.Context, endpoint string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func vendorMessage(status int, data []byte) string {
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Error != "" {
		return er.Error
	}
	return fmt.Sprintf("watson returned status %d", status)
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// IsMissingCommandField reports whether err came from a delimited command
// missing a required field.
func IsMissingCommandField(err error) bool {
	var target *MissingCommandFieldError
	return errors.As(err, &target)
}
