package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"marketplace/internal/audit"
	"marketplace/internal/order/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/requestcontext"
)

// CreateOrder converts the buyer's cart into one PROCESSING order per
// distinct listing, attaches them to the buyer's purchase history, and
// clears the cart. Stock is not touched here; it moves on confirmation.
//
// The writes run inside one transaction when the stores are SQL-backed.
// Memory stores see no transaction, so orders created before a mid-batch
// failure are deleted again; a failed call leaves no orders behind either
// way.
func (s *Service) CreateOrder(ctx context.Context, buyerID id.UserID) ([]*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.create")
	defer span.End()
	defer s.observe("create", time.Now())

	cart, err := s.carts.GetCart(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "cart is empty")
	}
	span.SetAttributes(attribute.Int("cart.items", len(cart.Items)))

	now := requestcontext.Now(ctx)
	created := make([]*models.Order, 0, len(cart.Items))
	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		for _, item := range cart.Items {
			order := &models.Order{
				ID:           id.NewOrderID(),
				ListingID:    item.ListingID,
				Quantity:     item.Quantity,
				Status:       models.StatusProcessing,
				PurchaseDate: now,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.store.Create(ctx, order); err != nil {
				s.rollbackCreated(ctx, created)
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create order")
			}
			created = append(created, order)
		}

		history, err := s.histories.GetOrCreate(ctx, buyerID)
		if err != nil {
			s.rollbackCreated(ctx, created)
			return err
		}

		orderIDs := make([]id.OrderID, len(created))
		for i, order := range created {
			orderIDs[i] = order.ID
		}
		if err := s.histories.Attach(ctx, history.ID, orderIDs...); err != nil {
			s.rollbackCreated(ctx, created)
			return err
		}
		for _, order := range created {
			order.HistoryID = history.ID
		}

		if err := s.carts.Clear(ctx, buyerID); err != nil {
			s.rollbackCreated(ctx, created)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.Add(float64(len(created)))
	for _, order := range created {
		s.logAudit(ctx, audit.EventOrderCreated, buyerID, order.ID.String())
	}
	return created, nil
}

func (s *Service) rollbackCreated(ctx context.Context, created []*models.Order) {
	for _, order := range created {
		if err := s.store.Delete(ctx, order.ID); err != nil {
			s.logger.Error("failed to roll back order", "error", err, "order_id", order.ID)
		}
	}
}
