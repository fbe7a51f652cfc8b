package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace/internal/auth/models"
	"marketplace/pkg/platform/sentinel"
)

const keyPrefix = "session:"

// RedisStore persists sessions in Redis with TTL = session expiry, so the
// cache forgets expired rows on its own; the lazy expiry check in the service
// stays as a guard for clock skew.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(token string) string { return keyPrefix + token }

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", sentinel.ErrExpired)
	}
	if err := s.client.Set(ctx, sessionKey(session.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Rotate(ctx context.Context, oldToken, newToken string, expiresAt, now time.Time) (*models.Session, error) {
	session, err := s.FindByToken(ctx, oldToken)
	if err != nil {
		return nil, err
	}

	session.Token = newToken
	session.ExpiresAt = expiresAt
	session.UpdatedAt = now

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(oldToken))
	pipe.Set(ctx, sessionKey(newToken), payload, time.Until(expiresAt))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	return session, nil
}

func (s *RedisStore) DeleteByToken(ctx context.Context, token string) error {
	deleted, err := s.client.Del(ctx, sessionKey(token)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// DeleteExpired is a no-op for Redis; TTLs already reap expired sessions.
func (s *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
