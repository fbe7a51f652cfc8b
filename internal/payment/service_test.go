package payment

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"marketplace/internal/audit"
	cartservice "marketplace/internal/cart/service"
	cartstore "marketplace/internal/cart/store"
	catalogmodels "marketplace/internal/catalog/models"
	catalogservice "marketplace/internal/catalog/service"
	catalogstore "marketplace/internal/catalog/store"
	"marketplace/internal/platform/metrics"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/requestcontext"
)

type fakeProvider struct {
	intents  []int64
	sessions [][]LineItem
}

func (f *fakeProvider) CreatePaymentIntent(_ context.Context, amount int64, _ string) (string, error) {
	f.intents = append(f.intents, amount)
	return "secret_test", nil
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, items []LineItem, _, _ string) (*CheckoutSession, error) {
	f.sessions = append(f.sessions, items)
	return &CheckoutSession{ID: "cs_test", URL: "https://checkout.example/cs_test"}, nil
}

type ServiceSuite struct {
	suite.Suite

	provider *fakeProvider
	catalog  *catalogstore.InMemoryStore
	carts    *cartservice.Service
	svc      *Service
	ctx      context.Context
	now      time.Time
	buyerID  id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.provider = &fakeProvider{}
	s.catalog = catalogstore.New()
	catalogSvc := catalogservice.NewService(s.catalog)
	s.carts = cartservice.NewService(cartstore.New(), catalogSvc)
	s.svc = NewService(
		s.provider,
		s.carts,
		catalogSvc,
		"pk_test_key",
		metrics.NewWith(prometheus.NewRegistry()),
		audit.NewPublisher(audit.NewInMemoryStore()),
		slog.New(slog.DiscardHandler),
	)
	s.now = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.buyerID = id.NewUserID()
}

func (s *ServiceSuite) seedListing(name string, price string, stock int) *catalogmodels.Listing {
	product := &catalogmodels.Product{
		ID:        id.NewProductID(),
		Name:      name,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.catalog.CreateProduct(s.ctx, product))

	listing := &catalogmodels.Listing{
		ID:        id.NewListingID(),
		ProductID: product.ID,
		SellerID:  id.NewUserID(),
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.catalog.CreateListing(s.ctx, listing))
	return listing
}

func (s *ServiceSuite) TestPublishableKey() {
	s.Equal("pk_test_key", s.svc.PublishableKey())
}

func (s *ServiceSuite) TestCreateIntentForCart() {
	desk := s.seedListing("Walnut Desk", "199.99", 10)
	chair := s.seedListing("Oak Chair", "49.50", 10)
	_, err := s.carts.AddItem(s.ctx, s.buyerID, desk.ID, 2)
	s.Require().NoError(err)
	_, err = s.carts.AddItem(s.ctx, s.buyerID, chair.ID, 1)
	s.Require().NoError(err)

	secret, err := s.svc.CreateIntentForCart(s.ctx, s.buyerID, "")
	s.Require().NoError(err)
	s.Equal("secret_test", secret)

	// 2 * 199.99 + 49.50 = 449.48 in cents.
	s.Require().Len(s.provider.intents, 1)
	s.Equal(int64(44948), s.provider.intents[0])
}

func (s *ServiceSuite) TestCreateIntentEmptyCart() {
	_, err := s.svc.CreateIntentForCart(s.ctx, s.buyerID, "usd")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.provider.intents)
}

func (s *ServiceSuite) TestCreateCheckoutSessionKeepsCart() {
	desk := s.seedListing("Walnut Desk", "199.99", 10)
	_, err := s.carts.AddItem(s.ctx, s.buyerID, desk.ID, 2)
	s.Require().NoError(err)

	session, err := s.svc.CreateCheckoutSession(s.ctx, s.buyerID, "https://shop.example/ok", "https://shop.example/back")
	s.Require().NoError(err)
	s.Equal("cs_test", session.ID)

	s.Require().Len(s.provider.sessions, 1)
	s.Require().Len(s.provider.sessions[0], 1)
	item := s.provider.sessions[0][0]
	s.Equal("Walnut Desk", item.Name)
	s.Equal(int64(19999), item.UnitAmount)
	s.Equal(int64(2), item.Quantity)

	cart, err := s.carts.GetCart(s.ctx, s.buyerID)
	s.Require().NoError(err)
	s.Len(cart.Items, 1, "session creation must not clear the cart")
}

func (s *ServiceSuite) TestConfirmCheckoutClearsCart() {
	desk := s.seedListing("Walnut Desk", "199.99", 10)
	_, err := s.carts.AddItem(s.ctx, s.buyerID, desk.ID, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.ConfirmCheckout(s.ctx, s.buyerID))

	cart, err := s.carts.GetCart(s.ctx, s.buyerID)
	s.Require().NoError(err)
	s.Empty(cart.Items)

	// Confirming again is harmless.
	s.NoError(s.svc.ConfirmCheckout(s.ctx, s.buyerID))
}
