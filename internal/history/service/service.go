package service

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/history/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/requestcontext"
)

// Store persists purchase histories.
type Store interface {
	GetOrCreate(ctx context.Context, buyerID id.UserID, now time.Time) (*models.History, error)
	FindByBuyer(ctx context.Context, buyerID id.UserID) (*models.History, error)
	FindByID(ctx context.Context, historyID id.HistoryID) (*models.History, error)
}

// OrderAttacher binds created orders to a ledger. Orders carry the history
// reference, so attachment is an order-side write.
type OrderAttacher interface {
	AttachHistory(ctx context.Context, orderIDs []id.OrderID, historyID id.HistoryID, now time.Time) error
}

// Service is the purchase history ledger: append-only, one per buyer.
type Service struct {
	store  Store
	orders OrderAttacher
}

func NewService(store Store, orders OrderAttacher) *Service {
	return &Service{store: store, orders: orders}
}

// GetOrCreate returns the buyer's ledger, creating it on first use. Calling
// it twice, even concurrently, yields the same ledger.
func (s *Service) GetOrCreate(ctx context.Context, buyerID id.UserID) (*models.History, error) {
	history, err := s.store.GetOrCreate(ctx, buyerID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load purchase history")
	}
	return history, nil
}

// FindByBuyer returns the buyer's ledger without creating one.
func (s *Service) FindByBuyer(ctx context.Context, buyerID id.UserID) (*models.History, error) {
	history, err := s.store.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "purchase history not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load purchase history")
	}
	return history, nil
}

// FindByID returns the ledger by its own identifier.
func (s *Service) FindByID(ctx context.Context, historyID id.HistoryID) (*models.History, error) {
	history, err := s.store.FindByID(ctx, historyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "purchase history not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load purchase history")
	}
	return history, nil
}

// Attach appends orders to the ledger. Orders already attached stay attached;
// nothing is ever detached.
func (s *Service) Attach(ctx context.Context, historyID id.HistoryID, orderIDs ...id.OrderID) error {
	if len(orderIDs) == 0 {
		return nil
	}
	if err := s.orders.AttachHistory(ctx, orderIDs, historyID, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach orders to history")
	}
	return nil
}
