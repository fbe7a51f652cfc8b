package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/history/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
	txcontext "marketplace/pkg/platform/tx"
)

// PostgresStore persists purchase histories in PostgreSQL. The buyer_id
// uniqueness makes GetOrCreate idempotent under concurrency.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, buyerID id.UserID, now time.Time) (*models.History, error) {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO purchase_histories (id, buyer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (buyer_id) DO NOTHING
	`, uuid.UUID(id.NewHistoryID()), uuid.UUID(buyerID), now, now)
	if err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	return s.FindByBuyer(ctx, buyerID)
}

func (s *PostgresStore) FindByBuyer(ctx context.Context, buyerID id.UserID) (*models.History, error) {
	return s.scanHistory(s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, buyer_id, created_at, updated_at
		FROM purchase_histories WHERE buyer_id = $1
	`, uuid.UUID(buyerID)))
}

func (s *PostgresStore) FindByID(ctx context.Context, historyID id.HistoryID) (*models.History, error) {
	return s.scanHistory(s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, buyer_id, created_at, updated_at
		FROM purchase_histories WHERE id = $1
	`, uuid.UUID(historyID)))
}

func (s *PostgresStore) scanHistory(row *sql.Row) (*models.History, error) {
	var (
		history    models.History
		rawID      uuid.UUID
		rawBuyerID uuid.UUID
	)
	err := row.Scan(&rawID, &rawBuyerID, &history.CreatedAt, &history.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("history not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan history: %w", err)
	}
	history.ID = id.HistoryID(rawID)
	history.BuyerID = id.UserID(rawBuyerID)
	return &history, nil
}
