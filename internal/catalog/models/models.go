package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "marketplace/pkg/domain"
)

// Product is a catalog entry. Pricing and stock live on listings, not here:
// several sellers can offer the same product.
type Product struct {
	ID          id.ProductID
	Name        string
	Description string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Listing is one seller's offer of a product. Stock is the authoritative
// inventory count and never goes negative.
type Listing struct {
	ID        id.ListingID
	ProductID id.ProductID
	SellerID  id.UserID
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}
