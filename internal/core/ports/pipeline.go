// Package ports defines the interfaces between the talk orchestrator and
// its collaborators.
package ports

import (
	"context"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
)

// ResponseProcessor rewrites the entries produced by a dialogue backend.
// Implementations must treat the input slice and its entries as read-only
// and must not reorder entries they do not consume.
type ResponseProcessor interface {
	// Name returns the unique identifier for this processor.
	Name() string
	// Process returns the rewritten entries for one turn.
	Process(ctx context.Context, entries []domain.Entry, query domain.Query) ([]domain.Entry, error)
}

// ProcessorChain runs every configured processor in order.
type ProcessorChain interface {
	Run(ctx context.Context, entries []domain.Entry, query domain.Query) ([]domain.Entry, error)
}
