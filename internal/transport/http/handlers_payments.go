package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"marketplace/internal/payment"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/httputil"
	"marketplace/pkg/requestcontext"
)

// PaymentService prices carts and drives the payment provider.
type PaymentService interface {
	CreateIntentForCart(ctx context.Context, buyerID id.UserID, currency string) (string, error)
	CreateCheckoutSession(ctx context.Context, buyerID id.UserID, successURL, cancelURL string) (*payment.CheckoutSession, error)
	ConfirmCheckout(ctx context.Context, buyerID id.UserID) error
	PublishableKey() string
}

// PaymentHandler serves the payment endpoints.
type PaymentHandler struct {
	service PaymentService
	logger  *slog.Logger
}

func NewPaymentHandler(service PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: logger}
}

// Register mounts the public payment endpoints.
func (h *PaymentHandler) Register(r chi.Router) {
	r.Get("/payments/publishable-key", h.HandlePublishableKey)
}

// RegisterBuyer mounts the authenticated buyer payment endpoints.
func (h *PaymentHandler) RegisterBuyer(r chi.Router) {
	r.Post("/payments/intent", h.HandleCreateIntent)
	r.Post("/payments/checkout-session", h.HandleCreateCheckoutSession)
	r.Post("/payments/checkout/confirm", h.HandleConfirmCheckout)
}

// HandlePublishableKey handles GET /payments/publishable-key.
func (h *PaymentHandler) HandlePublishableKey(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"publishable_key": h.service.PublishableKey(),
	})
}

type createIntentRequest struct {
	Currency string `json:"currency"`
}

func (r *createIntentRequest) Validate() error {
	r.Currency = strings.ToLower(strings.TrimSpace(r.Currency))
	if r.Currency != "" && len(r.Currency) != 3 {
		return dErrors.New(dErrors.CodeValidation, "currency must be a 3-letter code")
	}
	return nil
}

// HandleCreateIntent handles POST /payments/intent.
func (h *PaymentHandler) HandleCreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createIntentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	buyerID := requestcontext.UserID(ctx)
	clientSecret, err := h.service.CreateIntentForCart(ctx, buyerID, req.Currency)
	if err != nil {
		h.logger.WarnContext(ctx, "payment intent failed",
			"request_id", requestID,
			"buyer_id", buyerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"client_secret": clientSecret})
}

type checkoutSessionRequest struct {
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func (r *checkoutSessionRequest) Validate() error {
	if !govalidator.IsURL(r.SuccessURL) {
		return dErrors.New(dErrors.CodeInvalidInput, "success_url must be a valid URL")
	}
	if !govalidator.IsURL(r.CancelURL) {
		return dErrors.New(dErrors.CodeInvalidInput, "cancel_url must be a valid URL")
	}
	return nil
}

type checkoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// HandleCreateCheckoutSession handles POST /payments/checkout-session.
func (h *PaymentHandler) HandleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[checkoutSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	buyerID := requestcontext.UserID(ctx)
	session, err := h.service.CreateCheckoutSession(ctx, buyerID, req.SuccessURL, req.CancelURL)
	if err != nil {
		h.logger.WarnContext(ctx, "checkout session failed",
			"request_id", requestID,
			"buyer_id", buyerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, checkoutSessionResponse{ID: session.ID, URL: session.URL})
}

// HandleConfirmCheckout handles POST /payments/checkout/confirm: the
// post-payment callback that empties the cart.
func (h *PaymentHandler) HandleConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ConfirmCheckout(r.Context(), requestcontext.UserID(r.Context())); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
