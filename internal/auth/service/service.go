package service

import (
	"context"
	"log/slog"
	"time"

	"marketplace/internal/audit"
	"marketplace/internal/auth/jwt"
	"marketplace/internal/auth/models"
	"marketplace/internal/platform/metrics"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
)

// UserStore persists identities.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID id.UserID, passwordHash string, now time.Time) error
}

// SessionStore persists issued sessions keyed by token.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	Rotate(ctx context.Context, oldToken, newToken string, expiresAt, now time.Time) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// TokenService signs and verifies the bearer tokens sessions are bound to.
type TokenService interface {
	Generate(userID id.UserID, role models.Role, now time.Time) (string, error)
	Validate(raw string) (*jwt.Claims, error)
	TTL() time.Duration
}

// Service is the auth gate: registration, login/logout, token verification
// with sliding expiration, and role checks. Side effects stay confined to the
// user and session stores.
type Service struct {
	users    UserStore
	sessions SessionStore
	tokens   TokenService
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(
	users UserStore,
	sessions SessionStore,
	tokens TokenService,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		audit:    auditor,
		metrics:  m,
		logger:   logger,
	}
}

// Authorize is a pure predicate: no session or store access.
func Authorize(required []models.Role, role models.Role) error {
	for _, allowed := range required {
		if allowed == role {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "insufficient permissions")
}

func (s *Service) logAudit(ctx context.Context, action audit.AuditEvent, userID id.UserID, subject string) {
	event := audit.Event{
		UserID:  userID,
		Action:  string(action),
		Subject: subject,
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Error("failed to emit audit event", "error", err, "action", action)
	}
}
