//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"marketplace/internal/audit"
	id "marketplace/pkg/domain"
	"marketplace/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
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
	s.store = audit.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_outbox"))
}

func (s *PostgresStoreSuite) appendEvent(userID id.UserID, action audit.AuditEvent) {
	event := audit.Event{
		Timestamp: time.Now(),
		UserID:    userID,
		Action:    string(action),
		Subject:   "subject-1",
		Reason:    "because",
		RequestID: "req-123",
	}
	s.Require().NoError(s.store.Append(context.Background(), event))
}

func (s *PostgresStoreSuite) TestAppendAndListByUser() {
	ctx := context.Background()
	userID := id.NewUserID()
	s.appendEvent(userID, audit.EventOrderCreated)
	s.appendEvent(userID, audit.EventOrderConfirmed)
	s.appendEvent(id.NewUserID(), audit.EventOrderCanceled)

	events, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventOrderCreated), events[0].Action)
	s.Equal(string(audit.EventOrderConfirmed), events[1].Action)
	s.Equal("req-123", events[0].RequestID)
}

func (s *PostgresStoreSuite) TestOutboxLifecycle() {
	ctx := context.Background()
	s.appendEvent(id.NewUserID(), audit.EventUserRegistered)
	s.appendEvent(id.NewUserID(), audit.EventSessionRevoked)

	pending, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(string(audit.EventUserRegistered), pending[0].EventType)
	s.NotEmpty(pending[0].Payload)

	s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{pending[0].ID}, time.Now()))

	remaining, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(string(audit.EventSessionRevoked), remaining[0].EventType)
}

func (s *PostgresStoreSuite) TestFetchHonorsLimit() {
	ctx := context.Background()
	for range 5 {
		s.appendEvent(id.NewUserID(), audit.EventOrderCreated)
	}

	pending, err := s.store.FetchUnpublished(ctx, 3)
	s.Require().NoError(err)
	s.Len(pending, 3)
}
