package user

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"marketplace/internal/auth/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this pattern:
// - Return ErrNotFound when the requested entity does not exist
// - Return ErrConflict when a uniqueness constraint is violated
// - Return nil for successful operations
// InMemoryStore keeps users in memory for tests/dev.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

// New constructs an empty in-memory user store.
func New() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
		}
	}
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		found := *user
		return &found, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			found := *user
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) UpdatePassword(_ context.Context, userID id.UserID, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = now
	return nil
}
