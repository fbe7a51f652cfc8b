package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketplace/internal/cart/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
)

// InMemoryStore keeps one cart per user. Read-modify-write on a cart happens
// under the store lock, so concurrent adds for the same listing accumulate
// instead of overwriting each other.
type InMemoryStore struct {
	mu    sync.RWMutex
	carts map[id.UserID]*models.Cart
}

func New() *InMemoryStore {
	return &InMemoryStore{carts: make(map[id.UserID]*models.Cart)}
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, userID id.UserID, now time.Time) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		cart = &models.Cart{
			ID:        id.NewCartID(),
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.carts[userID] = cart
	}
	return copyCart(cart), nil
}

func (s *InMemoryStore) FindByUser(_ context.Context, userID id.UserID) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %s: %w", userID, sentinel.ErrNotFound)
	}
	return copyCart(cart), nil
}

// AddItem accumulates quantity onto an existing line or appends a new one.
func (s *InMemoryStore) AddItem(_ context.Context, cartID id.CartID, listingID id.ListingID, quantity int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.findByCartID(cartID)
	if err != nil {
		return err
	}

	if item := cart.Item(listingID); item != nil {
		item.Quantity += quantity
		item.UpdatedAt = now
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ListingID: listingID,
			Quantity:  quantity,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	cart.UpdatedAt = now
	return nil
}

// SetItemQuantity replaces the quantity of an existing line.
func (s *InMemoryStore) SetItemQuantity(_ context.Context, cartID id.CartID, listingID id.ListingID, quantity int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.findByCartID(cartID)
	if err != nil {
		return err
	}

	item := cart.Item(listingID)
	if item == nil {
		return fmt.Errorf("listing %s not in cart: %w", listingID, sentinel.ErrNotFound)
	}
	item.Quantity = quantity
	item.UpdatedAt = now
	cart.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) RemoveItem(_ context.Context, cartID id.CartID, listingID id.ListingID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.findByCartID(cartID)
	if err != nil {
		return err
	}

	for i := range cart.Items {
		if cart.Items[i].ListingID == listingID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			cart.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("listing %s not in cart: %w", listingID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) Clear(_ context.Context, cartID id.CartID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.findByCartID(cartID)
	if err != nil {
		return err
	}
	cart.Items = nil
	cart.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) findByCartID(cartID id.CartID) (*models.Cart, error) {
	for _, cart := range s.carts {
		if cart.ID == cartID {
			return cart, nil
		}
	}
	return nil, fmt.Errorf("cart %s: %w", cartID, sentinel.ErrNotFound)
}

func copyCart(cart *models.Cart) *models.Cart {
	copied := *cart
	copied.Items = make([]models.CartItem, len(cart.Items))
	copy(copied.Items, cart.Items)
	sort.Slice(copied.Items, func(i, j int) bool {
		if !copied.Items[i].CreatedAt.Equal(copied.Items[j].CreatedAt) {
			return copied.Items[i].CreatedAt.Before(copied.Items[j].CreatedAt)
		}
		return copied.Items[i].ListingID.String() < copied.Items[j].ListingID.String()
	})
	return &copied
}
