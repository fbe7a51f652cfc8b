package payment

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"marketplace/internal/audit"
	cartmodels "marketplace/internal/cart/models"
	catalogmodels "marketplace/internal/catalog/models"
	"marketplace/internal/platform/metrics"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
)

const defaultCurrency = "usd"

// Carts is the slice of the cart service the payment flow needs.
type Carts interface {
	GetCart(ctx context.Context, userID id.UserID) (*cartmodels.Cart, error)
	Clear(ctx context.Context, userID id.UserID) error
}

// Catalog resolves listings and product names for line items.
type Catalog interface {
	GetListing(ctx context.Context, listingID id.ListingID) (*catalogmodels.Listing, error)
	FindProduct(ctx context.Context, productID id.ProductID) (*catalogmodels.Product, error)
}

// Service prices the cart and drives the payment provider. The cart survives
// session creation; only a confirmed checkout clears it.
type Service struct {
	provider       Provider
	carts          Carts
	catalog        Catalog
	publishableKey string
	metrics        *metrics.Metrics
	audit          *audit.Publisher
	logger         *slog.Logger
}

func NewService(
	provider Provider,
	carts Carts,
	catalog Catalog,
	publishableKey string,
	m *metrics.Metrics,
	auditor *audit.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		provider:       provider,
		carts:          carts,
		catalog:        catalog,
		publishableKey: publishableKey,
		metrics:        m,
		audit:          auditor,
		logger:         logger,
	}
}

// PublishableKey returns the client-side key the frontend embeds.
func (s *Service) PublishableKey() string {
	return s.publishableKey
}

var centsPerUnit = decimal.NewFromInt(100)

// CreateIntentForCart totals the cart and opens a payment intent for that
// amount. Returns the client secret the frontend completes the payment with.
func (s *Service) CreateIntentForCart(ctx context.Context, buyerID id.UserID, currency string) (string, error) {
	if currency == "" {
		currency = defaultCurrency
	}

	cart, err := s.carts.GetCart(ctx, buyerID)
	if err != nil {
		return "", err
	}
	if len(cart.Items) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "cart is empty")
	}

	total := decimal.Zero
	for _, item := range cart.Items {
		listing, err := s.catalog.GetListing(ctx, item.ListingID)
		if err != nil {
			return "", err
		}
		total = total.Add(listing.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	amount := total.Mul(centsPerUnit).Round(0).IntPart()

	clientSecret, err := s.provider.CreatePaymentIntent(ctx, amount, currency)
	if err != nil {
		return "", err
	}

	s.metrics.PaymentIntents.Inc()
	s.logAudit(ctx, audit.EventPaymentIntentCreated, buyerID, "")
	return clientSecret, nil
}

// CreateCheckoutSession opens a hosted payment page priced from the cart.
// The cart is left intact; ConfirmCheckout clears it after payment.
func (s *Service) CreateCheckoutSession(ctx context.Context, buyerID id.UserID, successURL, cancelURL string) (*CheckoutSession, error) {
	cart, err := s.carts.GetCart(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "cart is empty")
	}

	items := make([]LineItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		listing, err := s.catalog.GetListing(ctx, item.ListingID)
		if err != nil {
			return nil, err
		}
		product, err := s.catalog.FindProduct(ctx, listing.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, LineItem{
			Name:       product.Name,
			UnitAmount: listing.Price.Mul(centsPerUnit).Round(0).IntPart(),
			Quantity:   int64(item.Quantity),
			Currency:   defaultCurrency,
		})
	}

	session, err := s.provider.CreateCheckoutSession(ctx, items, successURL, cancelURL)
	if err != nil {
		return nil, err
	}

	s.metrics.CheckoutSessions.Inc()
	return session, nil
}

// ConfirmCheckout is the post-payment callback: it empties the cart. Safe to
// call twice; clearing an empty cart succeeds.
func (s *Service) ConfirmCheckout(ctx context.Context, buyerID id.UserID) error {
	if err := s.carts.Clear(ctx, buyerID); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventCheckoutConfirmed, buyerID, "")
	return nil
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
