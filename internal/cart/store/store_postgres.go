package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"marketplace/internal/cart/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
	txcontext "marketplace/pkg/platform/tx"
)

// PostgresStore persists carts and their items in PostgreSQL. Accumulation
// rides on the (cart_id, listing_id) uniqueness so concurrent adds never
// lose an update.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const foreignKeyViolation = "23503"

func (s *PostgresStore) GetOrCreate(ctx context.Context, userID id.UserID, now time.Time) (*models.Cart, error) {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.UUID(id.NewCartID()), uuid.UUID(userID), now, now)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return s.FindByUser(ctx, userID)
}

func (s *PostgresStore) FindByUser(ctx context.Context, userID id.UserID) (*models.Cart, error) {
	var (
		cart  models.Cart
		rawID uuid.UUID
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, created_at, updated_at FROM carts WHERE user_id = $1
	`, uuid.UUID(userID)).Scan(&rawID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cart for user %s: %w", userID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}
	cart.ID = id.CartID(rawID)
	cart.UserID = userID

	if err := s.loadItems(ctx, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *PostgresStore) loadItems(ctx context.Context, cart *models.Cart) error {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT listing_id, quantity, created_at, updated_at
		FROM cart_items WHERE cart_id = $1
		ORDER BY created_at, listing_id
	`, uuid.UUID(cart.ID))
	if err != nil {
		return fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item         models.CartItem
			rawListingID uuid.UUID
		)
		if err := rows.Scan(&rawListingID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return fmt.Errorf("scan cart item: %w", err)
		}
		item.ListingID = id.ListingID(rawListingID)
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate cart items: %w", err)
	}
	return nil
}

// AddItem accumulates quantity onto an existing line or inserts a new one.
func (s *PostgresStore) AddItem(ctx context.Context, cartID id.CartID, listingID id.ListingID, quantity int, now time.Time) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, listing_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cart_id, listing_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`, uuid.New(), uuid.UUID(cartID), uuid.UUID(listingID), quantity, now, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation {
			return fmt.Errorf("cart %s or listing %s: %w", cartID, listingID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// SetItemQuantity replaces the quantity of an existing line.
func (s *PostgresStore) SetItemQuantity(ctx context.Context, cartID id.CartID, listingID id.ListingID, quantity int, now time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE cart_items SET quantity = $3, updated_at = $4
		WHERE cart_id = $1 AND listing_id = $2
	`, uuid.UUID(cartID), uuid.UUID(listingID), quantity, now)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return requireAffected(result, listingID)
}

func (s *PostgresStore) RemoveItem(ctx context.Context, cartID id.CartID, listingID id.ListingID, _ time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM cart_items WHERE cart_id = $1 AND listing_id = $2
	`, uuid.UUID(cartID), uuid.UUID(listingID))
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return requireAffected(result, listingID)
}

func (s *PostgresStore) Clear(ctx context.Context, cartID id.CartID, now time.Time) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM cart_items WHERE cart_id = $1
	`, uuid.UUID(cartID))
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		UPDATE carts SET updated_at = $2 WHERE id = $1
	`, uuid.UUID(cartID), now)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result, listingID id.ListingID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("listing %s not in cart: %w", listingID, sentinel.ErrNotFound)
	}
	return nil
}
