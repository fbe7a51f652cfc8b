package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"marketplace/internal/favorites/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
	txcontext "marketplace/pkg/platform/tx"
)

// PostgresStore persists favorites in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func (s *PostgresStore) Add(ctx context.Context, favorite *models.Favorite) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO favorites (id, user_id, product_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, favorite.ID, uuid.UUID(favorite.UserID), uuid.UUID(favorite.ProductID), favorite.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("product %s: %w", favorite.ProductID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, userID id.UserID, productID id.ProductID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND product_id = $2
	`, uuid.UUID(userID), uuid.UUID(productID))
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("product %s: %w", productID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Favorite, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, user_id, product_id, created_at
		FROM favorites WHERE user_id = $1 ORDER BY created_at
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var out []models.Favorite
	for rows.Next() {
		var (
			favorite     models.Favorite
			rawUserID    uuid.UUID
			rawProductID uuid.UUID
		)
		if err := rows.Scan(&favorite.ID, &rawUserID, &rawProductID, &favorite.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorite.UserID = id.UserID(rawUserID)
		favorite.ProductID = id.ProductID(rawProductID)
		out = append(out, favorite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return out, nil
}
