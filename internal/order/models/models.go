package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "marketplace/pkg/domain"
)

// Status is the order lifecycle state. Every order starts as PROCESSING;
// CONFIRMED and CANCELED are terminal.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusCanceled   Status = "CANCELED"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusProcessing || s == StatusConfirmed || s == StatusCanceled
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCanceled
}

// Order is one purchased line: a listing, a quantity, and a lifecycle state.
// HistoryID is zero until the order is attached to the buyer's ledger, which
// happens in the same creation flow.
type Order struct {
	ID           id.OrderID
	HistoryID    id.HistoryID
	ListingID    id.ListingID
	Quantity     int
	Status       Status
	PurchaseDate time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Detail is an order joined with the catalog and buyer context a seller
// report needs.
type Detail struct {
	Order       Order
	ProductName string
	UnitPrice   decimal.Decimal
	SellerID    id.UserID
	BuyerID     id.UserID
	BuyerEmail  string
}
