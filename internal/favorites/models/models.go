package models

import (
	"time"

	"github.com/google/uuid"

	id "marketplace/pkg/domain"
)

// Favorite marks a product a user wants to find again. At most one per
// (user, product) pair.
type Favorite struct {
	ID        uuid.UUID
	UserID    id.UserID
	ProductID id.ProductID
	CreatedAt time.Time
}
