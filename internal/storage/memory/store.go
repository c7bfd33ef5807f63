// Package memory provides a process-local session store. Sessions do not
// survive a restart and are not shared between replicas.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
)

type record struct {
	session   domain.Session
	expiresAt time.Time
}

func (r record) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && now.After(r.expiresAt)
}

// Store is an in-memory implementation of ports.SessionStore
type Store struct {
	mu       sync.RWMutex
	sessions map[string]record
	ttl      time.Duration
	now      func() time.Time
}

var _ ports.SessionStore = (*Store)(nil)

// New creates a new in-memory store. A zero ttl keeps sessions forever.
func New(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]record),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	rec, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	if rec.expired(s.now()) {
		// A Put may have refreshed the session since the read lock was released.
		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.sessions[id]
		if !ok {
			return nil, nil
		}
		if cur.expired(s.now()) {
			delete(s.sessions, id)
			return nil, nil
		}
		rec = cur
	}

	session := rec.session
	return &session, nil
}

func (s *Store) Put(ctx context.Context, session *domain.Session) error {
	rec := record{session: *session}
	if s.ttl > 0 {
		rec.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Key] = rec
	return nil
}

func (s *Store) Close() error {
	return nil
}
