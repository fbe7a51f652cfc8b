package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace/internal/catalog/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/requestcontext"
)

// Store persists the catalog.
type Store interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	FindProduct(ctx context.Context, productID id.ProductID) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	SearchProducts(ctx context.Context, query string) ([]*models.Product, error)
	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListing(ctx context.Context, listingID id.ListingID) (*models.Listing, error)
	FindListing(ctx context.Context, productID id.ProductID, sellerID id.UserID) (*models.Listing, error)
	DecrementStock(ctx context.Context, listingID id.ListingID, quantity int, now time.Time) error
}

// Service reads the catalog for the cart and order flows and owns the one
// write path those flows need, the stock decrement on confirmation.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) FindProduct(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	product, err := s.store.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
	}
	return product, nil
}

// Search returns products whose names match every term in the query. An
// empty query lists the whole catalog.
func (s *Service) Search(ctx context.Context, query string) ([]*models.Product, error) {
	var (
		products []*models.Product
		err      error
	)
	if strings.TrimSpace(query) == "" {
		products, err = s.store.ListProducts(ctx)
	} else {
		products, err = s.store.SearchProducts(ctx, query)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search products")
	}
	return products, nil
}

func (s *Service) GetListing(ctx context.Context, listingID id.ListingID) (*models.Listing, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "listing not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load listing")
	}
	return listing, nil
}

func (s *Service) FindListing(ctx context.Context, productID id.ProductID, sellerID id.UserID) (*models.Listing, error) {
	listing, err := s.store.FindListing(ctx, productID, sellerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "listing not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load listing")
	}
	return listing, nil
}

// DecrementStock takes quantity units off the listing. Callers that need to
// react to a shortfall test the returned error with
// errors.Is(err, sentinel.ErrInsufficientStock); the wrap keeps that chain.
func (s *Service) DecrementStock(ctx context.Context, listingID id.ListingID, quantity int) error {
	if quantity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity must be positive")
	}

	err := s.store.DecrementStock(ctx, listingID, quantity, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "listing not found")
		case errors.Is(err, sentinel.ErrInsufficientStock):
			return dErrors.Wrap(err, dErrors.CodeConflict, "insufficient stock")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decrement stock")
		}
	}
	return nil
}
