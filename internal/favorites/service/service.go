package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	catalogmodels "marketplace/internal/catalog/models"
	"marketplace/internal/favorites/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/requestcontext"
)

// Store persists favorites.
type Store interface {
	Add(ctx context.Context, favorite *models.Favorite) error
	Remove(ctx context.Context, userID id.UserID, productID id.ProductID) error
	ListByUser(ctx context.Context, userID id.UserID) ([]models.Favorite, error)
}

// Catalog resolves products for validation and listing.
type Catalog interface {
	FindProduct(ctx context.Context, productID id.ProductID) (*catalogmodels.Product, error)
}

// Service manages per-user favorite products.
type Service struct {
	store   Store
	catalog Catalog
}

func NewService(store Store, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog}
}

// Add marks a product as a favorite. Favoriting the same product twice is a
// conflict.
func (s *Service) Add(ctx context.Context, userID id.UserID, productID id.ProductID) error {
	if _, err := s.catalog.FindProduct(ctx, productID); err != nil {
		return err
	}

	favorite := &models.Favorite{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Add(ctx, favorite); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "product already in favorites")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add favorite")
	}
	return nil
}

// Remove drops a product from the user's favorites.
func (s *Service) Remove(ctx context.Context, userID id.UserID, productID id.ProductID) error {
	if err := s.store.Remove(ctx, userID, productID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "product not in favorites")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove favorite")
	}
	return nil
}

// List returns the user's favorite products, oldest first.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]*catalogmodels.Product, error) {
	favorites, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list favorites")
	}

	products := make([]*catalogmodels.Product, 0, len(favorites))
	for _, favorite := range favorites {
		product, err := s.catalog.FindProduct(ctx, favorite.ProductID)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}
