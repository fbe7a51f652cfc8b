//go:build integration

package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"marketplace/internal/auth/models"
	"marketplace/internal/auth/store/session"
	userstore "marketplace/internal/auth/store/user"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *session.PostgresStore
	users    *userstore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = session.NewPostgres(s.postgres.DB)
	s.users = userstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "sessions", "users")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedSession(token string, expiresAt time.Time) *models.Session {
	now := time.Now()
	user := &models.User{
		ID:           id.NewUserID(),
		Email:        id.NewUserID().String() + "@example.com",
		FirstName:    "Test",
		LastName:     "User",
		Role:         models.RoleBuyer,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.users.Create(context.Background(), user))

	sess := &models.Session{
		ID:        id.NewSessionID(),
		Token:     token,
		UserID:    user.ID,
		Role:      user.Role,
		Device:    "Chrome on Linux",
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.store.Create(context.Background(), sess))
	return sess
}

// TestConcurrentRotateSingleWinner verifies that racing rotations of the same
// token let exactly one caller through; the rest see the token as gone.
func (s *PostgresStoreSuite) TestConcurrentRotateSingleWinner() {
	ctx := context.Background()
	s.seedSession("contended-token", time.Now().Add(time.Hour))
	const goroutines = 20

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	var missed atomic.Int32
	var otherErrors atomic.Int32

	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			newToken := fmt.Sprintf("rotated-%d", i)
			_, err := s.store.Rotate(ctx, "contended-token", newToken, time.Now().Add(time.Hour), time.Now())
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, sentinel.ErrNotFound):
				missed.Add(1)
			default:
				otherErrors.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load(), "exactly one rotation should win")
	s.Equal(int32(goroutines-1), missed.Load())
	s.Equal(int32(0), otherErrors.Load())
}

func (s *PostgresStoreSuite) TestRotateInvalidatesOldToken() {
	ctx := context.Background()
	seeded := s.seedSession("original-token", time.Now().Add(time.Hour))

	rotated, err := s.store.Rotate(ctx, "original-token", "fresh-token", time.Now().Add(time.Hour), time.Now())
	s.Require().NoError(err)
	s.Equal(seeded.ID, rotated.ID, "rotation keeps the session row")
	s.Equal("fresh-token", rotated.Token)

	_, err = s.store.FindByToken(ctx, "original-token")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.FindByToken(ctx, "fresh-token")
	s.Require().NoError(err)
	s.Equal(seeded.UserID, found.UserID)
}

func (s *PostgresStoreSuite) TestDeleteExpiredSweepsOnlyPastSessions() {
	ctx := context.Background()
	now := time.Now()
	s.seedSession("expired-1", now.Add(-time.Minute))
	s.seedSession("expired-2", now.Add(-time.Hour))
	s.seedSession("live", now.Add(time.Hour))

	deleted, err := s.store.DeleteExpired(ctx, now)
	s.Require().NoError(err)
	s.Equal(2, deleted)

	_, err = s.store.FindByToken(ctx, "live")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestDeleteByTokenIsFinal() {
	ctx := context.Background()
	s.seedSession("doomed", time.Now().Add(time.Hour))

	s.Require().NoError(s.store.DeleteByToken(ctx, "doomed"))
	err := s.store.DeleteByToken(ctx, "doomed")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
