package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"marketplace/internal/catalog/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
	txcontext "marketplace/pkg/platform/tx"
)

// PostgresStore persists products and listings in PostgreSQL.
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

const uniqueViolation = "23505"

func (s *PostgresStore) CreateProduct(ctx context.Context, product *models.Product) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO products (id, name, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.UUID(product.ID), product.Name, product.Description, product.ImageURL,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("product %q: %w", product.Name, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindProduct(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	return s.scanProduct(s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, image_url, created_at, updated_at
		FROM products WHERE id = $1
	`, uuid.UUID(productID)))
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]*models.Product, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, description, image_url, created_at, updated_at
		FROM products ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return s.collectProducts(rows)
}

// SearchProducts matches when every term in the query is a prefix of some
// word in the product name, case-insensitively.
func (s *PostgresStore) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return s.ListProducts(ctx)
	}

	var (
		conditions []string
		args       []any
	)
	for i, term := range terms {
		conditions = append(conditions,
			fmt.Sprintf("(name ILIKE $%d || '%%' OR name ILIKE '%% ' || $%d || '%%')", i+1, i+1))
		args = append(args, term)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, description, image_url, created_at, updated_at
		FROM products WHERE `+strings.Join(conditions, " AND ")+` ORDER BY name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return s.collectProducts(rows)
}

func (s *PostgresStore) CreateListing(ctx context.Context, listing *models.Listing) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO listings (id, product_id, seller_id, price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(listing.ID), uuid.UUID(listing.ProductID), uuid.UUID(listing.SellerID),
		listing.Price, listing.Stock, listing.CreatedAt, listing.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch string(pqErr.Code) {
			case uniqueViolation:
				return fmt.Errorf("listing for product %s by seller %s: %w",
					listing.ProductID, listing.SellerID, sentinel.ErrConflict)
			case "23503": // foreign key violation
				return fmt.Errorf("product %s: %w", listing.ProductID, sentinel.ErrNotFound)
			}
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetListing(ctx context.Context, listingID id.ListingID) (*models.Listing, error) {
	return s.scanListing(s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, product_id, seller_id, price, stock, created_at, updated_at
		FROM listings WHERE id = $1
	`, uuid.UUID(listingID)))
}

func (s *PostgresStore) FindListing(ctx context.Context, productID id.ProductID, sellerID id.UserID) (*models.Listing, error) {
	return s.scanListing(s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, product_id, seller_id, price, stock, created_at, updated_at
		FROM listings WHERE product_id = $1 AND seller_id = $2
	`, uuid.UUID(productID), uuid.UUID(sellerID)))
}

// DecrementStock removes quantity units from the listing only if that many
// are available. The condition rides in the UPDATE itself, so concurrent
// confirmations cannot drive stock below zero.
func (s *PostgresStore) DecrementStock(ctx context.Context, listingID id.ListingID, quantity int, now time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE listings SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
	`, uuid.UUID(listingID), quantity, now)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var stock int
	err = s.execer(ctx).QueryRowContext(ctx,
		`SELECT stock FROM listings WHERE id = $1`, uuid.UUID(listingID)).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("listing %s: %w", listingID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return fmt.Errorf("listing %s has %d of %d requested: %w",
		listingID, stock, quantity, sentinel.ErrInsufficientStock)
}

func (s *PostgresStore) scanProduct(row *sql.Row) (*models.Product, error) {
	var (
		product models.Product
		rawID   uuid.UUID
	)
	err := row.Scan(&rawID, &product.Name, &product.Description, &product.ImageURL,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	product.ID = id.ProductID(rawID)
	return &product, nil
}

func (s *PostgresStore) collectProducts(rows *sql.Rows) ([]*models.Product, error) {
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		var (
			product models.Product
			rawID   uuid.UUID
		)
		err := rows.Scan(&rawID, &product.Name, &product.Description, &product.ImageURL,
			&product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		product.ID = id.ProductID(rawID)
		out = append(out, &product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) scanListing(row *sql.Row) (*models.Listing, error) {
	var (
		listing      models.Listing
		rawID        uuid.UUID
		rawProductID uuid.UUID
		rawSellerID  uuid.UUID
	)
	err := row.Scan(&rawID, &rawProductID, &rawSellerID, &listing.Price, &listing.Stock,
		&listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	listing.ID = id.ListingID(rawID)
	listing.ProductID = id.ProductID(rawProductID)
	listing.SellerID = id.UserID(rawSellerID)
	return &listing, nil
}
