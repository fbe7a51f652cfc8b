package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	catalogmodels "marketplace/internal/catalog/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/httputil"
	"marketplace/pkg/requestcontext"
)

// FavoritesService manages per-user favorite products.
type FavoritesService interface {
	Add(ctx context.Context, userID id.UserID, productID id.ProductID) error
	Remove(ctx context.Context, userID id.UserID, productID id.ProductID) error
	List(ctx context.Context, userID id.UserID) ([]*catalogmodels.Product, error)
}

// FavoritesHandler serves the favorites endpoints.
type FavoritesHandler struct {
	service FavoritesService
	logger  *slog.Logger
}

func NewFavoritesHandler(service FavoritesService, logger *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{service: service, logger: logger}
}

func (h *FavoritesHandler) Register(r chi.Router) {
	r.Get("/favorites", h.HandleList)
	r.Post("/favorites", h.HandleAdd)
	r.Delete("/favorites/{productID}", h.HandleRemove)
}

type addFavoriteRequest struct {
	ProductID string `json:"product_id"`

	parsedProductID id.ProductID
}

func (r *addFavoriteRequest) Validate() error {
	productID, err := id.ParseProductID(r.ProductID)
	if err != nil {
		return err
	}
	r.parsedProductID = productID
	return nil
}

// HandleAdd handles POST /favorites.
func (h *FavoritesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[addFavoriteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Add(ctx, requestcontext.UserID(ctx), req.parsedProductID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemove handles DELETE /favorites/{productID}.
func (h *FavoritesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Remove(ctx, requestcontext.UserID(ctx), productID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /favorites.
func (h *FavoritesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProducts(products))
}
