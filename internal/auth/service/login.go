package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/audit"
	"marketplace/internal/auth/device"
	"marketplace/internal/auth/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/requestcontext"
)

// Login verifies credentials and issues a fresh session bound to a signed
// token. The session expiry matches the token expiry.
func (s *Service) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := requestcontext.Now(ctx)
	token, err := s.tokens.Generate(user.ID, user.Role, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}

	session := &models.Session{
		ID:        id.NewSessionID(),
		Token:     token,
		UserID:    user.ID,
		Role:      user.Role,
		Device:    device.ParseUserAgent(requestcontext.UserAgent(ctx)),
		ExpiresAt: now.Add(s.tokens.TTL()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.metrics.SessionsIssued.Inc()
	s.logAudit(ctx, audit.EventSessionCreated, user.ID, session.ID.String())

	sanitized := *user
	sanitized.PasswordHash = ""
	return &models.LoginResult{User: &sanitized, Token: token}, nil
}

// Logout revokes the session behind the token. Revoking a token that no
// longer has a session is a no-op: logout is idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.sessions.DeleteByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}

	s.logAudit(ctx, audit.EventSessionRevoked, requestcontext.UserID(ctx), "")
	return nil
}
