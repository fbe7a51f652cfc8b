package service

import (
	"context"
	"time"

	"marketplace/internal/order/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
)

// ListUserOrders returns every order in the buyer's purchase history. A
// buyer who never ordered gets an empty list, not an error.
func (s *Service) ListUserOrders(ctx context.Context, buyerID id.UserID) ([]*models.Order, error) {
	history, err := s.histories.FindByBuyer(ctx, buyerID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return []*models.Order{}, nil
		}
		return nil, err
	}

	orders, err := s.store.ListByHistory(ctx, history.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list orders")
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

// ListByDateRange returns orders with a purchase date in [from, to], both
// bounds inclusive, joined with the product, price, and buyer behind each
// one.
func (s *Service) ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.Detail, error) {
	ctx, span := s.tracer.Start(ctx, "order.list_by_date_range")
	defer span.End()

	if from.After(to) {
		return nil, dErrors.New(dErrors.CodeValidation, "from must not be after to")
	}

	orders, err := s.store.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list orders")
	}

	details := make([]*models.Detail, 0, len(orders))
	for _, order := range orders {
		detail, err := s.enrich(ctx, order)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *Service) enrich(ctx context.Context, order *models.Order) (*models.Detail, error) {
	listing, err := s.catalog.GetListing(ctx, order.ListingID)
	if err != nil {
		return nil, err
	}
	product, err := s.catalog.FindProduct(ctx, listing.ProductID)
	if err != nil {
		return nil, err
	}

	detail := &models.Detail{
		Order:       *order,
		ProductName: product.Name,
		UnitPrice:   listing.Price,
		SellerID:    listing.SellerID,
	}

	if !order.HistoryID.IsNil() {
		history, err := s.histories.FindByID(ctx, order.HistoryID)
		if err != nil {
			return nil, err
		}
		buyer, err := s.users.FindByID(ctx, history.BuyerID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load buyer")
		}
		detail.BuyerID = buyer.ID
		detail.BuyerEmail = buyer.Email
	}
	return detail, nil
}
