// Package echo implements a dialogue backend that repeats the user's text.
// It performs no I/O and is used for local development and tests.
package echo

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
)

type Assistant struct{}

var _ ports.Assistant = (*Assistant)(nil)

func New() *Assistant {
	return &Assistant{}
}

func (a *Assistant) CreateSession(ctx context.Context, userID string) (string, error) {
	return uuid.NewString(), nil
}

func (a *Assistant) SendMessage(ctx context.Context, in domain.AssistantInput, actx domain.AssistantContext) (*domain.AssistantOutput, error) {
	out := &domain.AssistantOutput{
		SessionID: in.SessionID,
		UserID:    in.UserID,
		Response:  []domain.Entry{&domain.TextEntry{Text: in.Query.Text}},
	}

	if in.IncludeDebug {
		debug, err := json.Marshal(map[string]any{
			"assistant": "echo",
			"query":     in.Query,
		})
		if err != nil {
			return nil, err
		}
		out.DebugOutput = debug
	}

	return out, nil
}
