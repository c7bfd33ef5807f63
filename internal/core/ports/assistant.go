package ports

import (
	"context"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
)

// Assistant is a dialogue backend.
type Assistant interface {
	// CreateSession opens a fresh conversation for userID and returns its id.
	CreateSession(ctx context.Context, userID string) (string, error)

	// SendMessage runs one turn of the conversation.
	SendMessage(ctx context.Context, in domain.AssistantInput, actx domain.AssistantContext) (*domain.AssistantOutput, error)
}
