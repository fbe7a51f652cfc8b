package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"marketplace/internal/catalog/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
)

// InMemoryStore keeps products and listings in maps. All mutation happens
// under the write lock, so the stock check and decrement are atomic.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[id.ProductID]*models.Product
	listings map[id.ListingID]*models.Listing
}

func New() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[id.ProductID]*models.Product),
		listings: make(map[id.ListingID]*models.Listing),
	}
}

func (s *InMemoryStore) CreateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if strings.EqualFold(existing.Name, product.Name) {
			return fmt.Errorf("product %q: %w", product.Name, sentinel.ErrConflict)
		}
	}

	stored := *product
	s.products[product.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindProduct(_ context.Context, productID id.ProductID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", productID, sentinel.ErrNotFound)
	}
	found := *product
	return &found, nil
}

func (s *InMemoryStore) ListProducts(_ context.Context) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Product, 0, len(s.products))
	for _, product := range s.products {
		found := *product
		out = append(out, &found)
	}
	return out, nil
}

// SearchProducts matches when every term in the query is a prefix of some
// word in the product name, case-insensitively.
func (s *InMemoryStore) SearchProducts(_ context.Context, query string) ([]*models.Product, error) {
	terms := strings.Fields(strings.ToLower(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Product
	for _, product := range s.products {
		if matchesTerms(product.Name, terms) {
			found := *product
			out = append(out, &found)
		}
	}
	return out, nil
}

func matchesTerms(name string, terms []string) bool {
	words := strings.Fields(strings.ToLower(name))
	for _, term := range terms {
		matched := false
		for _, word := range words {
			if strings.HasPrefix(word, term) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (s *InMemoryStore) CreateListing(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[listing.ProductID]; !ok {
		return fmt.Errorf("product %s: %w", listing.ProductID, sentinel.ErrNotFound)
	}
	for _, existing := range s.listings {
		if existing.ProductID == listing.ProductID && existing.SellerID == listing.SellerID {
			return fmt.Errorf("listing for product %s by seller %s: %w",
				listing.ProductID, listing.SellerID, sentinel.ErrConflict)
		}
	}

	stored := *listing
	s.listings[listing.ID] = &stored
	return nil
}

func (s *InMemoryStore) GetListing(_ context.Context, listingID id.ListingID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", listingID, sentinel.ErrNotFound)
	}
	found := *listing
	return &found, nil
}

func (s *InMemoryStore) FindListing(_ context.Context, productID id.ProductID, sellerID id.UserID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, listing := range s.listings {
		if listing.ProductID == productID && listing.SellerID == sellerID {
			found := *listing
			return &found, nil
		}
	}
	return nil, fmt.Errorf("listing for product %s by seller %s: %w", productID, sellerID, sentinel.ErrNotFound)
}

// DecrementStock removes quantity units from the listing only if that many
// are available.
func (s *InMemoryStore) DecrementStock(_ context.Context, listingID id.ListingID, quantity int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("listing %s: %w", listingID, sentinel.ErrNotFound)
	}
	if listing.Stock < quantity {
		return fmt.Errorf("listing %s has %d of %d requested: %w",
			listingID, listing.Stock, quantity, sentinel.ErrInsufficientStock)
	}

	listing.Stock -= quantity
	listing.UpdatedAt = now
	return nil
}
