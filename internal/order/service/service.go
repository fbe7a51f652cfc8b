package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/audit"
	authmodels "marketplace/internal/auth/models"
	cartmodels "marketplace/internal/cart/models"
	catalogmodels "marketplace/internal/catalog/models"
	historymodels "marketplace/internal/history/models"
	"marketplace/internal/order/models"
	"marketplace/internal/platform/metrics"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/tx"
)

// Store persists orders.
type Store interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	UpdateStatusIf(ctx context.Context, orderID id.OrderID, from, to models.Status, now time.Time) error
	Delete(ctx context.Context, orderID id.OrderID) error
	ListByHistory(ctx context.Context, historyID id.HistoryID) ([]*models.Order, error)
	ListByHistoryAndStatus(ctx context.Context, historyID id.HistoryID, status models.Status) ([]*models.Order, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.Order, error)
}

// Carts is the slice of the cart service the order flow needs.
type Carts interface {
	GetCart(ctx context.Context, userID id.UserID) (*cartmodels.Cart, error)
	Clear(ctx context.Context, userID id.UserID) error
}

// Catalog resolves listings and owns the stock decrement on confirmation.
type Catalog interface {
	GetListing(ctx context.Context, listingID id.ListingID) (*catalogmodels.Listing, error)
	FindProduct(ctx context.Context, productID id.ProductID) (*catalogmodels.Product, error)
	DecrementStock(ctx context.Context, listingID id.ListingID, quantity int) error
}

// Histories is the purchase ledger the created orders attach to.
type Histories interface {
	GetOrCreate(ctx context.Context, buyerID id.UserID) (*historymodels.History, error)
	FindByBuyer(ctx context.Context, buyerID id.UserID) (*historymodels.History, error)
	FindByID(ctx context.Context, historyID id.HistoryID) (*historymodels.History, error)
	Attach(ctx context.Context, historyID id.HistoryID, orderIDs ...id.OrderID) error
}

// Users resolves buyer detail for seller reports.
type Users interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

// Service is the order workflow engine. It drives the cart-to-order
// conversion and the PROCESSING to CONFIRMED or CANCELED transitions, and it
// is the only caller of the stock decrement.
type Service struct {
	store     Store
	carts     Carts
	catalog   Catalog
	histories Histories
	users     Users
	txr       *tx.Runner
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewService(
	store Store,
	carts Carts,
	catalog Catalog,
	histories Histories,
	users Users,
	txr *tx.Runner,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		carts:     carts,
		catalog:   catalog,
		histories: histories,
		users:     users,
		txr:       txr,
		audit:     auditor,
		metrics:   m,
		tracer:    otel.Tracer("marketplace/order"),
		logger:    logger,
	}
}

func (s *Service) observe(operation string, start time.Time) {
	s.metrics.OrderDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
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
