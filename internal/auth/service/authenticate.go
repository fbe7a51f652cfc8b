package service

import (
	"context"
	"errors"

	"marketplace/internal/audit"
	"marketplace/internal/auth/models"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/requestcontext"
)

// Authenticate verifies a bearer token against its session row and slides the
// expiration window: a fresh token replaces the presented one and the session
// expiry moves forward by the full TTL. The returned Identity carries the
// rotated token so transport can hand it back to the client.
//
// An expired session is deleted on sight; the caller gets an unauthorized
// error either way, so lazy cleanup never changes the outcome.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing credentials")
	}

	if _, err := s.tokens.Validate(token); err != nil {
		return nil, err
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}

	now := requestcontext.Now(ctx)
	if session.Expired(now) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Error("failed to delete expired session", "error", err, "session_id", session.ID)
		}
		s.metrics.SessionsExpired.Inc()
		s.logAudit(ctx, audit.EventSessionExpired, session.UserID, session.ID.String())
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session expired")
	}

	rotatedToken, err := s.tokens.Generate(session.UserID, session.Role, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}

	rotated, err := s.sessions.Rotate(ctx, token, rotatedToken, now.Add(s.tokens.TTL()), now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Lost a race with logout or a concurrent rotation.
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate session")
	}

	return &models.Identity{
		UserID:    rotated.UserID,
		Role:      rotated.Role,
		SessionID: rotated.ID,
		Token:     rotated.Token,
		ExpiresAt: rotated.ExpiresAt,
	}, nil
}

// Refresh re-issues a token for an existing session without requiring the
// token to still verify. Unlike Authenticate it reports absence as not found,
// so clients can distinguish "log in again" from "bad credentials".
func (s *Service) Refresh(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing credentials")
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}

	if _, err := s.users.FindByID(ctx, session.UserID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	now := requestcontext.Now(ctx)
	if session.Expired(now) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Error("failed to delete expired session", "error", err, "session_id", session.ID)
		}
		s.metrics.SessionsExpired.Inc()
		s.logAudit(ctx, audit.EventSessionExpired, session.UserID, session.ID.String())
		return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
	}

	rotatedToken, err := s.tokens.Generate(session.UserID, session.Role, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}

	rotated, err := s.sessions.Rotate(ctx, token, rotatedToken, now.Add(s.tokens.TTL()), now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate session")
	}

	return &models.Identity{
		UserID:    rotated.UserID,
		Role:      rotated.Role,
		SessionID: rotated.ID,
		Token:     rotated.Token,
		ExpiresAt: rotated.ExpiresAt,
	}, nil
}

// DeleteExpiredSessions sweeps sessions past their expiry. The janitor
// goroutine calls this on an interval; the lazy deletion in Authenticate
// covers sessions that are presented, this covers the ones that never are.
func (s *Service) DeleteExpiredSessions(ctx context.Context) (int, error) {
	deleted, err := s.sessions.DeleteExpired(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep sessions")
	}
	if deleted > 0 {
		s.metrics.SessionsExpired.Add(float64(deleted))
	}
	return deleted, nil
}
