package service

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/cart/models"
	catalogmodels "marketplace/internal/catalog/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/requestcontext"
)

// Store persists carts.
type Store interface {
	GetOrCreate(ctx context.Context, userID id.UserID, now time.Time) (*models.Cart, error)
	FindByUser(ctx context.Context, userID id.UserID) (*models.Cart, error)
	AddItem(ctx context.Context, cartID id.CartID, listingID id.ListingID, quantity int, now time.Time) error
	SetItemQuantity(ctx context.Context, cartID id.CartID, listingID id.ListingID, quantity int, now time.Time) error
	RemoveItem(ctx context.Context, cartID id.CartID, listingID id.ListingID, now time.Time) error
	Clear(ctx context.Context, cartID id.CartID, now time.Time) error
}

// Catalog is the slice of the catalog service the cart needs.
type Catalog interface {
	GetListing(ctx context.Context, listingID id.ListingID) (*catalogmodels.Listing, error)
}

// Service is the cart manager: a buyer's staging area between browsing and
// ordering. Carts are created lazily, so reads never fail for a missing cart.
type Service struct {
	store   Store
	catalog Catalog
}

func NewService(store Store, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog}
}

// GetCart returns the user's cart, creating an empty one on first touch.
func (s *Service) GetCart(ctx context.Context, userID id.UserID) (*models.Cart, error) {
	cart, err := s.store.GetOrCreate(ctx, userID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cart")
	}
	return cart, nil
}

// AddItem puts quantity units of a listing into the cart. Adding a listing
// already present accumulates onto the existing line.
func (s *Service) AddItem(ctx context.Context, userID id.UserID, listingID id.ListingID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "quantity must be positive")
	}
	if _, err := s.catalog.GetListing(ctx, listingID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	cart, err := s.store.GetOrCreate(ctx, userID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cart")
	}
	if err := s.store.AddItem(ctx, cart.ID, listingID, quantity, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add cart item")
	}
	return s.GetCart(ctx, userID)
}

// UpdateItemQuantity replaces the quantity of a line. A quantity at or below
// zero removes the line instead. The new quantity may not exceed the
// listing's available stock.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID id.UserID, listingID id.ListingID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, listingID)
	}

	listing, err := s.catalog.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if quantity > listing.Stock {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"quantity %d exceeds available stock %d", quantity, listing.Stock)
	}

	now := requestcontext.Now(ctx)
	cart, err := s.store.GetOrCreate(ctx, userID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cart")
	}
	if err := s.store.SetItemQuantity(ctx, cart.ID, listingID, quantity, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "listing not in cart")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update cart item")
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID id.UserID, listingID id.ListingID) (*models.Cart, error) {
	now := requestcontext.Now(ctx)
	cart, err := s.store.GetOrCreate(ctx, userID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cart")
	}
	if err := s.store.RemoveItem(ctx, cart.ID, listingID, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "listing not in cart")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove cart item")
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the cart. Clearing an already empty or absent cart succeeds.
func (s *Service) Clear(ctx context.Context, userID id.UserID) error {
	now := requestcontext.Now(ctx)
	cart, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cart")
	}
	if err := s.store.Clear(ctx, cart.ID, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear cart")
	}
	return nil
}
