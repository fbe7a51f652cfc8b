package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"marketplace/internal/favorites/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
)

// InMemoryStore keeps favorites in a slice per user.
type InMemoryStore struct {
	mu        sync.RWMutex
	favorites map[id.UserID][]models.Favorite
}

func New() *InMemoryStore {
	return &InMemoryStore{favorites: make(map[id.UserID][]models.Favorite)}
}

func (s *InMemoryStore) Add(_ context.Context, favorite *models.Favorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.favorites[favorite.UserID] {
		if existing.ProductID == favorite.ProductID {
			return fmt.Errorf("product %s: %w", favorite.ProductID, sentinel.ErrConflict)
		}
	}
	s.favorites[favorite.UserID] = append(s.favorites[favorite.UserID], *favorite)
	return nil
}

func (s *InMemoryStore) Remove(_ context.Context, userID id.UserID, productID id.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.favorites[userID]
	for i, favorite := range list {
		if favorite.ProductID == productID {
			s.favorites[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("product %s: %w", productID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Favorite, len(s.favorites[userID]))
	copy(out, s.favorites[userID])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
