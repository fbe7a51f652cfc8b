//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"marketplace/internal/auth/models"
	"marketplace/internal/auth/store/session"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = session.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func makeSession(token string, ttl time.Duration) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:        id.NewSessionID(),
		Token:     token,
		UserID:    id.NewUserID(),
		Role:      models.RoleBuyer,
		Device:    "Firefox on macOS",
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *RedisStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	sess := makeSession("redis-token", time.Hour)
	s.Require().NoError(s.store.Create(ctx, sess))

	found, err := s.store.FindByToken(ctx, "redis-token")
	s.Require().NoError(err)
	s.Equal(sess.ID, found.ID)
	s.Equal(sess.UserID, found.UserID)
	s.Equal(models.RoleBuyer, found.Role)
}

func (s *RedisStoreSuite) TestCreateAlreadyExpiredRejected() {
	sess := makeSession("stale-token", -time.Minute)
	err := s.store.Create(context.Background(), sess)
	s.Require().ErrorIs(err, sentinel.ErrExpired)
}

func (s *RedisStoreSuite) TestRotateMovesKey() {
	ctx := context.Background()
	sess := makeSession("before-rotate", time.Hour)
	s.Require().NoError(s.store.Create(ctx, sess))

	rotated, err := s.store.Rotate(ctx, "before-rotate", "after-rotate", time.Now().Add(time.Hour), time.Now())
	s.Require().NoError(err)
	s.Equal(sess.ID, rotated.ID)
	s.Equal("after-rotate", rotated.Token)

	_, err = s.store.FindByToken(ctx, "before-rotate")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.FindByToken(ctx, "after-rotate")
	s.Require().NoError(err)
	s.Equal(sess.UserID, found.UserID)
}

func (s *RedisStoreSuite) TestTTLReapsSession() {
	ctx := context.Background()
	sess := makeSession("short-lived", 1500*time.Millisecond)
	s.Require().NoError(s.store.Create(ctx, sess))

	time.Sleep(2 * time.Second)

	_, err := s.store.FindByToken(ctx, "short-lived")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestDeleteByToken() {
	ctx := context.Background()
	sess := makeSession("revoked", time.Hour)
	s.Require().NoError(s.store.Create(ctx, sess))

	s.Require().NoError(s.store.DeleteByToken(ctx, "revoked"))
	err := s.store.DeleteByToken(ctx, "revoked")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
