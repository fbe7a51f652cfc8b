package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketplace/internal/catalog/models"
	id "marketplace/pkg/domain"
	"marketplace/pkg/platform/httputil"
)

// CatalogService is the read side of the catalog.
type CatalogService interface {
	Search(ctx context.Context, query string) ([]*models.Product, error)
	FindProduct(ctx context.Context, productID id.ProductID) (*models.Product, error)
}

// CatalogHandler serves the public product browse endpoints.
type CatalogHandler struct {
	service CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(service CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, logger: logger}
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.HandleSearch)
	r.Get("/products/{productID}", h.HandleGetProduct)
}

type productResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

func fromProduct(product *models.Product) productResponse {
	return productResponse{
		ID:          product.ID.String(),
		Name:        product.Name,
		Description: product.Description,
		ImageURL:    product.ImageURL,
	}
}

func fromProducts(products []*models.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, product := range products {
		out[i] = fromProduct(product)
	}
	return out
}

// HandleSearch handles GET /products?q=term.
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProducts(products))
}

// HandleGetProduct handles GET /products/{productID}.
func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	product, err := h.service.FindProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProduct(product))
}
