package models

import (
	"time"

	id "marketplace/pkg/domain"
)

// History is a buyer's purchase ledger. Exactly one per buyer, created on
// first order; orders attach to it and are never detached.
type History struct {
	ID        id.HistoryID
	BuyerID   id.UserID
	CreatedAt time.Time
	UpdatedAt time.Time
}
