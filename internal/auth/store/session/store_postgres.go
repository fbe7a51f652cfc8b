package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/auth/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
)

// PostgresStore persists sessions in PostgreSQL for deployments without Redis.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token, user_id, role, device, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(session.ID), session.Token, uuid.UUID(session.UserID),
		string(session.Role), session.Device, session.ExpiresAt,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, user_id, role, device, expires_at, created_at, updated_at
		FROM sessions WHERE token = $1
	`, token)

	var (
		session models.Session
		rawID   uuid.UUID
		rawUser uuid.UUID
		role    string
		device  sql.NullString
	)
	err := row.Scan(&rawID, &session.Token, &rawUser, &role, &device,
		&session.ExpiresAt, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	session.ID = id.SessionID(rawID)
	session.UserID = id.UserID(rawUser)
	session.Role = models.Role(role)
	session.Device = device.String
	return &session, nil
}

func (s *PostgresStore) Rotate(ctx context.Context, oldToken, newToken string, expiresAt, now time.Time) (*models.Session, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET token = $2, expires_at = $3, updated_at = $4 WHERE token = $1
	`, oldToken, newToken, expiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return s.FindByToken(ctx, newToken)
}

func (s *PostgresStore) DeleteByToken(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// DeleteExpired sweeps sessions past expiry; called by the background janitor.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(affected), nil
}
