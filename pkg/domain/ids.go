// Package domain holds typed identifiers shared across modules.
//
// Every persisted entity gets its own UUID-backed ID type so the compiler
// rejects cross-entity assignment (passing a SellerID where a BuyerID is
// expected is a bug we want caught before review).
package domain

import (
	"github.com/google/uuid"

	dErrors "marketplace/pkg/domain-errors"
)

type (
	UserID    uuid.UUID
	SessionID uuid.UUID
	ProductID uuid.UUID
	ListingID uuid.UUID
	CartID    uuid.UUID
	OrderID   uuid.UUID
	HistoryID uuid.UUID
)

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id ProductID) String() string { return uuid.UUID(id).String() }
func (id ListingID) String() string { return uuid.UUID(id).String() }
func (id CartID) String() string    { return uuid.UUID(id).String() }
func (id OrderID) String() string   { return uuid.UUID(id).String() }
func (id HistoryID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ListingID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CartID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id OrderID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id HistoryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func NewUserID() UserID       { return UserID(uuid.New()) }
func NewSessionID() SessionID { return SessionID(uuid.New()) }
func NewProductID() ProductID { return ProductID(uuid.New()) }
func NewListingID() ListingID { return ListingID(uuid.New()) }
func NewCartID() CartID       { return CartID(uuid.New()) }
func NewOrderID() OrderID     { return OrderID(uuid.New()) }
func NewHistoryID() HistoryID { return HistoryID(uuid.New()) }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw, "session")
	return SessionID(parsed), err
}

func ParseProductID(raw string) (ProductID, error) {
	parsed, err := parseUUID(raw, "product")
	return ProductID(parsed), err
}

func ParseListingID(raw string) (ListingID, error) {
	parsed, err := parseUUID(raw, "listing")
	return ListingID(parsed), err
}

func ParseCartID(raw string) (CartID, error) {
	parsed, err := parseUUID(raw, "cart")
	return CartID(parsed), err
}

func ParseOrderID(raw string) (OrderID, error) {
	parsed, err := parseUUID(raw, "order")
	return OrderID(parsed), err
}

func ParseHistoryID(raw string) (HistoryID, error) {
	parsed, err := parseUUID(raw, "history")
	return HistoryID(parsed), err
}
