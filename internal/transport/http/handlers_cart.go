package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"marketplace/internal/cart/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/httputil"
	"marketplace/pkg/requestcontext"
)

// CartService is the cart manager the handlers delegate to.
type CartService interface {
	GetCart(ctx context.Context, userID id.UserID) (*models.Cart, error)
	AddItem(ctx context.Context, userID id.UserID, listingID id.ListingID, quantity int) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID id.UserID, listingID id.ListingID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID id.UserID, listingID id.ListingID) (*models.Cart, error)
	Clear(ctx context.Context, userID id.UserID) error
}

// CartHandler serves the buyer's cart endpoints.
type CartHandler struct {
	service CartService
	logger  *slog.Logger
}

func NewCartHandler(service CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: service, logger: logger}
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.HandleGetCart)
	r.Delete("/cart", h.HandleClear)
	r.Post("/cart/items", h.HandleAddItem)
	r.Put("/cart/items/{listingID}", h.HandleUpdateItem)
	r.Delete("/cart/items/{listingID}", h.HandleRemoveItem)
}

type cartItemResponse struct {
	ListingID string    `json:"listing_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type cartResponse struct {
	ID    string             `json:"id"`
	Items []cartItemResponse `json:"items"`
}

func fromCart(cart *models.Cart) cartResponse {
	items := make([]cartItemResponse, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = cartItemResponse{
			ListingID: item.ListingID.String(),
			Quantity:  item.Quantity,
			AddedAt:   item.CreatedAt,
		}
	}
	return cartResponse{ID: cart.ID.String(), Items: items}
}

// HandleGetCart handles GET /cart.
func (h *CartHandler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCart(cart))
}

type addItemRequest struct {
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`

	parsedListingID id.ListingID
}

func (r *addItemRequest) Validate() error {
	listingID, err := id.ParseListingID(r.ListingID)
	if err != nil {
		return err
	}
	r.parsedListingID = listingID
	if r.Quantity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

// HandleAddItem handles POST /cart/items.
func (h *CartHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[addItemRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	userID := requestcontext.UserID(ctx)
	cart, err := h.service.AddItem(ctx, userID, req.parsedListingID, req.Quantity)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to add cart item",
			"request_id", requestID,
			"user_id", userID,
			"listing_id", req.ListingID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCart(cart))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (r *updateItemRequest) Validate() error { return nil }

// HandleUpdateItem handles PUT /cart/items/{listingID}. A quantity at or
// below zero removes the line.
func (h *CartHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[updateItemRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cart, err := h.service.UpdateItemQuantity(ctx, requestcontext.UserID(ctx), listingID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCart(cart))
}

// HandleRemoveItem handles DELETE /cart/items/{listingID}.
func (h *CartHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cart, err := h.service.RemoveItem(ctx, requestcontext.UserID(ctx), listingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCart(cart))
}

// HandleClear handles DELETE /cart.
func (h *CartHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), requestcontext.UserID(r.Context())); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
