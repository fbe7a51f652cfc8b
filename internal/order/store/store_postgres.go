package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"marketplace/internal/order/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
	txcontext "marketplace/pkg/platform/tx"
)

// PostgresStore persists orders in PostgreSQL. Status transitions use a
// conditional UPDATE so two writers cannot both move the same order.
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

const orderColumns = `id, history_id, listing_id, quantity, status, purchase_date, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, order *models.Order) error {
	var historyID any
	if !order.HistoryID.IsNil() {
		historyID = uuid.UUID(order.HistoryID)
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(order.ID), historyID, uuid.UUID(order.ListingID), order.Quantity,
		string(order.Status), order.PurchaseDate, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	return scanOrder(s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1
	`, uuid.UUID(orderID)))
}

// UpdateStatusIf transitions the order from one status to another only when
// it currently holds the expected status.
func (s *PostgresStore) UpdateStatusIf(ctx context.Context, orderID id.OrderID, from, to models.Status, now time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, uuid.UUID(orderID), string(from), string(to), now)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var current string
	err = s.execer(ctx).QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1`, uuid.UUID(orderID)).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return fmt.Errorf("order %s is %s, not %s: %w", orderID, current, from, sentinel.ErrInvalidState)
}

// Delete removes an order. The creation flow uses it to roll back orders
// created before a mid-batch failure.
func (s *PostgresStore) Delete(ctx context.Context, orderID id.OrderID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM orders WHERE id = $1
	`, uuid.UUID(orderID))
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AttachHistory(ctx context.Context, orderIDs []id.OrderID, historyID id.HistoryID, now time.Time) error {
	raw := make([]uuid.UUID, len(orderIDs))
	for i, orderID := range orderIDs {
		raw[i] = uuid.UUID(orderID)
	}
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE orders SET history_id = $2, updated_at = $3
		WHERE id = ANY($1::uuid[])
	`, pq.Array(raw), uuid.UUID(historyID), now)
	if err != nil {
		return fmt.Errorf("attach orders: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach orders: %w", err)
	}
	if affected != int64(len(orderIDs)) {
		return fmt.Errorf("attached %d of %d orders: %w", affected, len(orderIDs), sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListByHistory(ctx context.Context, historyID id.HistoryID) ([]*models.Order, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE history_id = $1 ORDER BY purchase_date, id
	`, uuid.UUID(historyID))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectOrders(rows)
}

func (s *PostgresStore) ListByHistoryAndStatus(ctx context.Context, historyID id.HistoryID, status models.Status) ([]*models.Order, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE history_id = $1 AND status = $2 ORDER BY purchase_date, id
	`, uuid.UUID(historyID), string(status))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectOrders(rows)
}

func (s *PostgresStore) ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE purchase_date >= $1 AND purchase_date <= $2
		ORDER BY purchase_date, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectOrders(rows)
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	var (
		order        models.Order
		rawID        uuid.UUID
		rawHistoryID uuid.NullUUID
		rawListingID uuid.UUID
		status       string
	)
	err := row.Scan(&rawID, &rawHistoryID, &rawListingID, &order.Quantity, &status,
		&order.PurchaseDate, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	order.ID = id.OrderID(rawID)
	order.HistoryID = id.HistoryID(rawHistoryID.UUID)
	order.ListingID = id.ListingID(rawListingID)
	order.Status = models.Status(status)
	return &order, nil
}

func collectOrders(rows *sql.Rows) ([]*models.Order, error) {
	defer rows.Close()

	var out []*models.Order
	for rows.Next() {
		var (
			order        models.Order
			rawID        uuid.UUID
			rawHistoryID uuid.NullUUID
			rawListingID uuid.UUID
			status       string
		)
		err := rows.Scan(&rawID, &rawHistoryID, &rawListingID, &order.Quantity, &status,
			&order.PurchaseDate, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.ID = id.OrderID(rawID)
		order.HistoryID = id.HistoryID(rawHistoryID.UUID)
		order.ListingID = id.ListingID(rawListingID)
		order.Status = models.Status(status)
		out = append(out, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}
