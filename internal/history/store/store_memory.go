package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace/internal/history/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
)

// InMemoryStore keeps one history per buyer. GetOrCreate is atomic under the
// lock, so concurrent first orders resolve to the same ledger.
type InMemoryStore struct {
	mu        sync.RWMutex
	histories map[id.UserID]*models.History
}

func New() *InMemoryStore {
	return &InMemoryStore{histories: make(map[id.UserID]*models.History)}
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, buyerID id.UserID, now time.Time) (*models.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.histories[buyerID]
	if !ok {
		history = &models.History{
			ID:        id.NewHistoryID(),
			BuyerID:   buyerID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.histories[buyerID] = history
	}
	found := *history
	return &found, nil
}

func (s *InMemoryStore) FindByBuyer(_ context.Context, buyerID id.UserID) (*models.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.histories[buyerID]
	if !ok {
		return nil, fmt.Errorf("history for buyer %s: %w", buyerID, sentinel.ErrNotFound)
	}
	found := *history
	return &found, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, historyID id.HistoryID) (*models.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, history := range s.histories {
		if history.ID == historyID {
			found := *history
			return &found, nil
		}
	}
	return nil, fmt.Errorf("history %s: %w", historyID, sentinel.ErrNotFound)
}
