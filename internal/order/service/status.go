package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"marketplace/internal/audit"
	"marketplace/internal/order/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/requestcontext"
)

// UpdateOrderStatus moves an order out of PROCESSING on behalf of the seller
// who owns its listing. Confirmation decrements the listing's stock; when
// too little stock remains the order stays PROCESSING and the caller gets a
// conflict.
//
// The transition is a compare-and-swap on the current status, so confirming
// the same order twice fails the second time no matter how the calls
// interleave.
func (s *Service) UpdateOrderStatus(ctx context.Context, sellerID id.UserID, orderID id.OrderID, next models.Status) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.update_status")
	defer span.End()
	defer s.observe("update_status", time.Now())

	if next != models.StatusConfirmed && next != models.StatusCanceled {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid target status %q", next)
	}

	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}

	listing, err := s.catalog.GetListing(ctx, order.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != sellerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "order belongs to another seller")
	}

	now := requestcontext.Now(ctx)
	if err := s.store.UpdateStatusIf(ctx, orderID, models.StatusProcessing, next, now); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "order is no longer processing")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update order status")
	}

	if next == models.StatusConfirmed {
		if err := s.catalog.DecrementStock(ctx, order.ListingID, order.Quantity); err != nil {
			// The order must not stay CONFIRMED without the stock movement.
			if revertErr := s.store.UpdateStatusIf(ctx, orderID, models.StatusConfirmed, models.StatusProcessing, now); revertErr != nil {
				s.logger.Error("failed to revert order status", "error", revertErr, "order_id", orderID)
			}
			if errors.Is(err, sentinel.ErrInsufficientStock) {
				s.metrics.StockConflicts.Inc()
				s.logAudit(ctx, audit.EventStockConflict, sellerID, orderID.String())
			}
			return nil, err
		}
		s.metrics.OrdersConfirmed.Inc()
		s.logAudit(ctx, audit.EventOrderConfirmed, sellerID, orderID.String())
	} else {
		s.metrics.OrdersCanceled.Inc()
		s.logAudit(ctx, audit.EventOrderCanceled, sellerID, orderID.String())
	}

	order.Status = next
	order.UpdatedAt = now
	return order, nil
}

// CancelOrder cancels one of the buyer's own PROCESSING orders. Confirmed
// orders are final; stock already moved for them.
func (s *Service) CancelOrder(ctx context.Context, buyerID id.UserID, orderID id.OrderID) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.cancel")
	defer span.End()
	defer s.observe("cancel", time.Now())

	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}

	history, err := s.histories.FindByBuyer(ctx, buyerID)
	if err != nil {
		// A buyer without a ledger has nothing to cancel.
		return nil, err
	}
	if order.HistoryID.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "purchase history not found")
	}
	if order.HistoryID != history.ID {
		return nil, dErrors.New(dErrors.CodeForbidden, "order belongs to another buyer")
	}

	if order.Status == models.StatusConfirmed {
		return nil, dErrors.New(dErrors.CodeConflict, "confirmed orders cannot be canceled")
	}

	now := requestcontext.Now(ctx)
	if err := s.store.UpdateStatusIf(ctx, orderID, models.StatusProcessing, models.StatusCanceled, now); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "order is not cancelable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel order")
	}

	s.metrics.OrdersCanceled.Inc()
	s.logAudit(ctx, audit.EventOrderCanceled, buyerID, orderID.String())

	order.Status = models.StatusCanceled
	order.UpdatedAt = now
	return order, nil
}

// CancelAllPending cancels every PROCESSING order of the buyer, fanning the
// transitions out concurrently. Orders that a seller confirms mid-flight are
// skipped, not failed. Returns how many orders were canceled; a buyer with
// no pending orders gets a not found error.
func (s *Service) CancelAllPending(ctx context.Context, buyerID id.UserID) (int, error) {
	ctx, span := s.tracer.Start(ctx, "order.cancel_all_pending")
	defer span.End()
	defer s.observe("cancel_all_pending", time.Now())

	history, err := s.histories.FindByBuyer(ctx, buyerID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "no pending orders")
		}
		return 0, err
	}

	pending, err := s.store.ListByHistoryAndStatus(ctx, history.ID, models.StatusProcessing)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending orders")
	}
	if len(pending) == 0 {
		return 0, dErrors.New(dErrors.CodeNotFound, "no pending orders")
	}

	now := requestcontext.Now(ctx)
	var (
		mu       sync.Mutex
		canceled []id.OrderID
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, order := range pending {
		g.Go(func() error {
			err := s.store.UpdateStatusIf(gctx, order.ID, models.StatusProcessing, models.StatusCanceled, now)
			if err != nil {
				if errors.Is(err, sentinel.ErrInvalidState) {
					return nil
				}
				return err
			}
			mu.Lock()
			canceled = append(canceled, order.ID)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return len(canceled), dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel pending orders")
	}

	s.metrics.OrdersCanceled.Add(float64(len(canceled)))
	for _, orderID := range canceled {
		s.logAudit(ctx, audit.EventOrderCanceled, buyerID, orderID.String())
	}
	return len(canceled), nil
}
