//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	authmodels "marketplace/internal/auth/models"
	userstore "marketplace/internal/auth/store/user"
	catalogmodels "marketplace/internal/catalog/models"
	catalogstore "marketplace/internal/catalog/store"
	historystore "marketplace/internal/history/store"
	"marketplace/internal/order/models"
	"marketplace/internal/order/store"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/sentinel"
	"marketplace/pkg/platform/tx"
	"marketplace/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *store.PostgresStore
	users     *userstore.PostgresStore
	catalog   *catalogstore.PostgresStore
	histories *historystore.PostgresStore
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
	s.store = store.NewPostgres(s.postgres.DB)
	s.users = userstore.NewPostgres(s.postgres.DB)
	s.catalog = catalogstore.NewPostgres(s.postgres.DB)
	s.histories = historystore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"orders", "purchase_histories", "listings", "products", "users")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedUser(role authmodels.Role) id.UserID {
	now := time.Now()
	user := &authmodels.User{
		ID:           id.NewUserID(),
		Email:        id.NewUserID().String() + "@example.com",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.users.Create(context.Background(), user))
	return user.ID
}

func (s *PostgresStoreSuite) seedListing() id.ListingID {
	ctx := context.Background()
	now := time.Now()
	product := &catalogmodels.Product{
		ID:        id.NewProductID(),
		Name:      "Product " + id.NewProductID().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.catalog.CreateProduct(ctx, product))

	listing := &catalogmodels.Listing{
		ID:        id.NewListingID(),
		ProductID: product.ID,
		SellerID:  s.seedUser(authmodels.RoleSeller),
		Price:     decimal.NewFromInt(40),
		Stock:     50,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.catalog.CreateListing(ctx, listing))
	return listing.ID
}

func (s *PostgresStoreSuite) seedOrder(purchaseDate time.Time) *models.Order {
	order := &models.Order{
		ID:           id.NewOrderID(),
		ListingID:    s.seedListing(),
		Quantity:     1,
		Status:       models.StatusProcessing,
		PurchaseDate: purchaseDate,
		CreatedAt:    purchaseDate,
		UpdatedAt:    purchaseDate,
	}
	s.Require().NoError(s.store.Create(context.Background(), order))
	return order
}

// TestConcurrentStatusTransitionSingleWinner verifies the conditional UPDATE
// lets exactly one caller move an order out of PROCESSING.
func (s *PostgresStoreSuite) TestConcurrentStatusTransitionSingleWinner() {
	ctx := context.Background()
	order := s.seedOrder(time.Now())
	const goroutines = 20

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	var lost atomic.Int32
	var otherErrors atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.UpdateStatusIf(ctx, order.ID, models.StatusProcessing, models.StatusConfirmed, time.Now())
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				lost.Add(1)
			default:
				otherErrors.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load(), "exactly one transition should win")
	s.Equal(int32(goroutines-1), lost.Load())
	s.Equal(int32(0), otherErrors.Load())

	reloaded, err := s.store.FindByID(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, reloaded.Status)
}

func (s *PostgresStoreSuite) TestUpdateStatusIfWrongState() {
	ctx := context.Background()
	order := s.seedOrder(time.Now())

	s.Require().NoError(s.store.UpdateStatusIf(ctx, order.ID, models.StatusProcessing, models.StatusCanceled, time.Now()))

	err := s.store.UpdateStatusIf(ctx, order.ID, models.StatusProcessing, models.StatusConfirmed, time.Now())
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	err = s.store.UpdateStatusIf(ctx, id.NewOrderID(), models.StatusProcessing, models.StatusConfirmed, time.Now())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAttachHistoryAndList() {
	ctx := context.Background()
	now := time.Now()
	first := s.seedOrder(now)
	second := s.seedOrder(now.Add(time.Second))

	history, err := s.histories.GetOrCreate(ctx, s.seedUser(authmodels.RoleBuyer), now)
	s.Require().NoError(err)

	orderIDs := []id.OrderID{first.ID, second.ID}
	s.Require().NoError(s.store.AttachHistory(ctx, orderIDs, history.ID, now))

	listed, err := s.store.ListByHistory(ctx, history.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(first.ID, listed[0].ID)
	s.Equal(second.ID, listed[1].ID)
	for _, order := range listed {
		s.Equal(history.ID, order.HistoryID)
	}
}

func (s *PostgresStoreSuite) TestAttachHistoryMissingOrder() {
	ctx := context.Background()
	now := time.Now()
	order := s.seedOrder(now)

	history, err := s.histories.GetOrCreate(ctx, s.seedUser(authmodels.RoleBuyer), now)
	s.Require().NoError(err)

	err = s.store.AttachHistory(ctx, []id.OrderID{order.ID, id.NewOrderID()}, history.ID, now)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByDateRange() {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inside := s.seedOrder(base.Add(24 * time.Hour))
	s.seedOrder(base.Add(-24 * time.Hour))
	s.seedOrder(base.Add(10 * 24 * time.Hour))

	listed, err := s.store.ListByDateRange(ctx, base, base.Add(5*24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(inside.ID, listed[0].ID)
}

func (s *PostgresStoreSuite) TestCreateInsideTransactionRollsBack() {
	ctx := context.Background()
	now := time.Now()
	runner := tx.NewRunner(s.postgres.DB)

	order := &models.Order{
		ID:           id.NewOrderID(),
		ListingID:    s.seedListing(),
		Quantity:     1,
		Status:       models.StatusProcessing,
		PurchaseDate: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	failure := errors.New("step failed")
	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.Create(ctx, order))
		return failure
	})
	s.Require().ErrorIs(err, failure)

	_, err = s.store.FindByID(ctx, order.ID)
	s.ErrorIs(err, sentinel.ErrNotFound, "the rolled-back insert leaves no row")
}

func (s *PostgresStoreSuite) TestListByDateRangeIncludesBounds() {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	atStart := s.seedOrder(base)
	atEnd := s.seedOrder(base.Add(24 * time.Hour))

	listed, err := s.store.ListByDateRange(ctx, base, base.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(listed, 2, "both bounds are inclusive")
	s.Equal(atStart.ID, listed[0].ID)
	s.Equal(atEnd.ID, listed[1].ID)
}
