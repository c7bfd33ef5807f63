package ports

import (
	"context"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
)

// SessionStore persists the binding between a dialogue-engine session and
// the user that owns it. Implementations must be safe for concurrent use;
// concurrent writes to the same key are last-write-wins.
type SessionStore interface {
	// Get returns the session stored under id, or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Put creates or replaces the session and refreshes its expiry.
	Put(ctx context.Context, session *domain.Session) error

	// Close releases the underlying connection or file handles.
	Close() error
}
