package models

import (
	"time"

	id "marketplace/pkg/domain"
)

// CartItem is one listing in a cart. A cart holds at most one item per
// listing; adding the same listing again accumulates the quantity.
type CartItem struct {
	ListingID id.ListingID
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cart is a buyer's staging area. One cart per user, created lazily on first
// read or write.
type Cart struct {
	ID        id.CartID
	UserID    id.UserID
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item returns the item for the listing, or nil when absent.
func (c *Cart) Item(listingID id.ListingID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ListingID == listingID {
			return &c.Items[i]
		}
	}
	return nil
}
