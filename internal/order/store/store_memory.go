package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketplace/internal/order/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
)

// InMemoryStore keeps orders in a map. Status transitions are
// compare-and-swap under the write lock, matching the conditional UPDATE the
// SQL store uses.
type InMemoryStore struct {
	mu     sync.RWMutex
	orders map[id.OrderID]*models.Order
}

func New() *InMemoryStore {
	return &InMemoryStore{orders: make(map[id.OrderID]*models.Order)}
}

func (s *InMemoryStore) Create(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("order %s: %w", order.ID, sentinel.ErrConflict)
	}
	stored := *order
	s.orders[order.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, orderID id.OrderID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
	}
	found := *order
	return &found, nil
}

// UpdateStatusIf transitions the order from one status to another only when
// it currently holds the expected status.
func (s *InMemoryStore) UpdateStatusIf(_ context.Context, orderID id.OrderID, from, to models.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
	}
	if order.Status != from {
		return fmt.Errorf("order %s is %s, not %s: %w", orderID, order.Status, from, sentinel.ErrInvalidState)
	}
	order.Status = to
	order.UpdatedAt = now
	return nil
}

// Delete removes an order. The creation flow uses it to roll back orders
// created before a mid-batch failure.
func (s *InMemoryStore) Delete(_ context.Context, orderID id.OrderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
	}
	delete(s.orders, orderID)
	return nil
}

func (s *InMemoryStore) AttachHistory(_ context.Context, orderIDs []id.OrderID, historyID id.HistoryID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, orderID := range orderIDs {
		if _, ok := s.orders[orderID]; !ok {
			return fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
		}
	}
	for _, orderID := range orderIDs {
		s.orders[orderID].HistoryID = historyID
		s.orders[orderID].UpdatedAt = now
	}
	return nil
}

func (s *InMemoryStore) ListByHistory(_ context.Context, historyID id.HistoryID) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Order
	for _, order := range s.orders {
		if order.HistoryID == historyID {
			found := *order
			out = append(out, &found)
		}
	}
	sortByPurchaseDate(out)
	return out, nil
}

func (s *InMemoryStore) ListByHistoryAndStatus(_ context.Context, historyID id.HistoryID, status models.Status) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Order
	for _, order := range s.orders {
		if order.HistoryID == historyID && order.Status == status {
			found := *order
			out = append(out, &found)
		}
	}
	sortByPurchaseDate(out)
	return out, nil
}

func (s *InMemoryStore) ListByDateRange(_ context.Context, from, to time.Time) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Order
	for _, order := range s.orders {
		if !order.PurchaseDate.Before(from) && !order.PurchaseDate.After(to) {
			found := *order
			out = append(out, &found)
		}
	}
	sortByPurchaseDate(out)
	return out, nil
}

func sortByPurchaseDate(orders []*models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].PurchaseDate.Equal(orders[j].PurchaseDate) {
			return orders[i].PurchaseDate.Before(orders[j].PurchaseDate)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
}
