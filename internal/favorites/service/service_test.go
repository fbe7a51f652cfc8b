package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	catalogmodels "marketplace/internal/catalog/models"
	catalogservice "marketplace/internal/catalog/service"
	catalogstore "marketplace/internal/catalog/store"
	favstore "marketplace/internal/favorites/store"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite

	catalog *catalogstore.InMemoryStore
	svc     *Service
	ctx     context.Context
	now     time.Time
	userID  id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.catalog = catalogstore.New()
	s.svc = NewService(favstore.New(), catalogservice.NewService(s.catalog))
	s.now = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.userID = id.NewUserID()
}

func (s *ServiceSuite) seedProduct(name string) *catalogmodels.Product {
	product := &catalogmodels.Product{
		ID:        id.NewProductID(),
		Name:      name,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.catalog.CreateProduct(s.ctx, product))
	return product
}

func (s *ServiceSuite) TestAddAndList() {
	first := s.seedProduct("Walnut Desk")
	second := s.seedProduct("Oak Chair")

	s.Require().NoError(s.svc.Add(s.ctx, s.userID, first.ID))
	s.Require().NoError(s.svc.Add(s.ctx, s.userID, second.ID))

	products, err := s.svc.List(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(products, 2)
	s.Equal("Walnut Desk", products[0].Name)

	// Another user sees nothing.
	products, err = s.svc.List(s.ctx, id.NewUserID())
	s.Require().NoError(err)
	s.Empty(products)
}

func (s *ServiceSuite) TestAddDuplicate() {
	product := s.seedProduct("Walnut Desk")

	s.Require().NoError(s.svc.Add(s.ctx, s.userID, product.ID))
	err := s.svc.Add(s.ctx, s.userID, product.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestAddUnknownProduct() {
	err := s.svc.Add(s.ctx, s.userID, id.NewProductID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRemove() {
	product := s.seedProduct("Walnut Desk")
	s.Require().NoError(s.svc.Add(s.ctx, s.userID, product.ID))

	s.Require().NoError(s.svc.Remove(s.ctx, s.userID, product.ID))

	err := s.svc.Remove(s.ctx, s.userID, product.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
