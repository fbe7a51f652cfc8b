package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"marketplace/internal/auth/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
	txcontext "marketplace/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
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

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, role, password_hash, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(user.ID), user.Email, user.FirstName, user.LastName,
		string(user.Role), user.PasswordHash, user.Phone, user.Address,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.scanUser(s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, role, password_hash, phone, address, created_at, updated_at
		FROM users WHERE id = $1
	`, uuid.UUID(userID)))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, role, password_hash, phone, address, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)
	`, email))
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, userID id.UserID, passwordHash string, now time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, uuid.UUID(userID), passwordHash, now)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) scanUser(row *sql.Row) (*models.User, error) {
	var (
		user    models.User
		rawID   uuid.UUID
		role    string
		phone   sql.NullString
		address sql.NullString
	)
	err := row.Scan(&rawID, &user.Email, &user.FirstName, &user.LastName,
		&role, &user.PasswordHash, &phone, &address, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.ID = id.UserID(rawID)
	user.Role = models.Role(role)
	user.Phone = phone.String
	user.Address = address.String
	return &user, nil
}
