package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/identity"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/platform"
)

// LightspeedInferPath is the RHEL Lightspeed question endpoint.
const LightspeedInferPath = "/api/lightspeed/v1/infer"

// CommandResolver replaces a command entry with the answer of a remote
// service. An entry matches when its command equals Command and its only
// argument equals Param.
type CommandResolver struct {
	name      string
	command   string
	param     string
	baseURL   string
	path      string
	retries   int
	requester platform.Requester
	logger    *slog.Logger
}

// CommandResolverConfig configures a command resolver.
type CommandResolverConfig struct {
	Name    string
	Command string
	Param   string
	BaseURL string
	Path    string
	Retries int
	Logger  *slog.Logger
}

type inferRequest struct {
	Question string `json:"question"`
}

type inferResponse struct {
	Data struct {
		ModelID string `json:"model_id"`
		Text    string `json:"text"`
	} `json:"data"`
}

// NewCommandResolver creates a command resolver.
func NewCommandResolver(cfg CommandResolverConfig, requester platform.Requester) *CommandResolver {
	name := cfg.Name
	if name == "" {
		name = "command_resolver"
	}
	path := cfg.Path
	if path == "" {
		path = LightspeedInferPath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CommandResolver{
		name:      name,
		command:   cfg.Command,
		param:     cfg.Param,
		baseURL:   cfg.BaseURL,
		path:      path,
		retries:   cfg.Retries,
		requester: requester,
		logger:    logger,
	}
}

// Name returns the stage identifier.
func (r *CommandResolver) Name() string {
	return r.name
}

func (r *CommandResolver) matches(e domain.Entry) bool {
	cmd, ok := e.(*domain.CommandEntry)
	return ok && cmd.Command == r.command && len(cmd.Args) == 1 && cmd.Args[0] == r.param
}

// Process resolves every matching command. Other entries pass through in place.
func (r *CommandResolver) Process(ctx context.Context, entries []domain.Entry, query domain.Query) ([]domain.Entry, error) {
	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if !r.matches(e) {
			out = append(out, e)
			continue
		}

		answer, err := r.resolve(ctx, query)
		if err != nil {
			return nil, err
		}
		out = append(out, &domain.TextEntry{Text: answer})
	}
	return out, nil
}

// statusError is a non-2xx answer from the remote service. Only server
// errors are retried.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("returned status %d", e.code)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError
	}
	return true
}

func (r *CommandResolver) resolve(ctx context.Context, query domain.Query) (string, error) {
	var lastErr error

	// Retry loop
	attempts := r.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		answer, err := r.doRequest(ctx, query)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			break
		}
		r.logger.WarnContext(ctx, "command resolver request failed",
			slog.String("processor", r.name),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
		if !retryable(err) {
			break
		}
	}

	return "", domain.ErrProcessorFailure(fmt.Sprintf("%s: %v", r.name, lastErr))
}

func (r *CommandResolver) doRequest(ctx context.Context, query domain.Query) (string, error) {
	token, _ := identity.TokenFromContext(ctx)

	resp, err := r.requester.Do(ctx, http.MethodPost, r.baseURL, r.path, inferRequest{Question: query.Text}, token)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.WarnContext(ctx, "command resolver rejected request",
			slog.String("processor", r.name),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return "", &statusError{code: resp.StatusCode}
	}

	var out inferResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return out.Data.Text, nil
}

// Ensure CommandResolver implements the interface.
var _ ports.ResponseProcessor = (*CommandResolver)(nil)
