package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace/internal/auth/models"
	"marketplace/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in memory for tests/dev, keyed by token since
// the token is the only handle clients present.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// New constructs an empty in-memory session store.
func New() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*models.Session)}
}

func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.sessions[session.Token] = &stored
	return nil
}

func (s *InMemoryStore) FindByToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[token]; ok {
		found := *session
		return &found, nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

// Rotate swaps the stored token for a new value and extends expiry in one
// step, so a concurrent lookup sees either the old or the new token but never
// a session without a token.
func (s *InMemoryStore) Rotate(_ context.Context, oldToken, newToken string, expiresAt, now time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[oldToken]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, oldToken)
	session.Token = newToken
	session.ExpiresAt = expiresAt
	session.UpdatedAt = now
	s.sessions[newToken] = session
	rotated := *session
	return &rotated, nil
}

func (s *InMemoryStore) DeleteByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, token)
	return nil
}

// DeleteExpired removes all sessions past expiry as of the given time.
// The time parameter is injected for testability.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}
