package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"marketplace/internal/order/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/httputil"
	"marketplace/pkg/requestcontext"
)

// OrderService is the order workflow engine the handlers delegate to.
type OrderService interface {
	CreateOrder(ctx context.Context, buyerID id.UserID) ([]*models.Order, error)
	ListUserOrders(ctx context.Context, buyerID id.UserID) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, sellerID id.UserID, orderID id.OrderID, next models.Status) (*models.Order, error)
	CancelOrder(ctx context.Context, buyerID id.UserID, orderID id.OrderID) (*models.Order, error)
	CancelAllPending(ctx context.Context, buyerID id.UserID) (int, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.Detail, error)
}

// OrderHandler serves the order workflow endpoints.
type OrderHandler struct {
	service OrderService
	logger  *slog.Logger
}

func NewOrderHandler(service OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: service, logger: logger}
}

// RegisterBuyer mounts the buyer-side order endpoints.
func (h *OrderHandler) RegisterBuyer(r chi.Router) {
	r.Post("/orders", h.HandleCreate)
	r.Get("/orders", h.HandleList)
	r.Post("/orders/cancel-all", h.HandleCancelAll)
	r.Post("/orders/{orderID}/cancel", h.HandleCancel)
}

// RegisterSeller mounts the seller-side order endpoints.
func (h *OrderHandler) RegisterSeller(r chi.Router) {
	r.Patch("/orders/{orderID}/status", h.HandleUpdateStatus)
	r.Get("/orders/report", h.HandleReport)
}

type orderResponse struct {
	ID           string    `json:"id"`
	ListingID    string    `json:"listing_id"`
	Quantity     int       `json:"quantity"`
	Status       string    `json:"status"`
	PurchaseDate time.Time `json:"purchase_date"`
}

func fromOrder(order *models.Order) orderResponse {
	return orderResponse{
		ID:           order.ID.String(),
		ListingID:    order.ListingID.String(),
		Quantity:     order.Quantity,
		Status:       string(order.Status),
		PurchaseDate: order.PurchaseDate,
	}
}

func fromOrders(orders []*models.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, order := range orders {
		out[i] = fromOrder(order)
	}
	return out
}

// HandleCreate handles POST /orders: the cart-to-order conversion.
func (h *OrderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	buyerID := requestcontext.UserID(ctx)

	orders, err := h.service.CreateOrder(ctx, buyerID)
	if err != nil {
		h.logger.WarnContext(ctx, "order creation failed",
			"request_id", requestID,
			"buyer_id", buyerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "orders created",
		"request_id", requestID,
		"buyer_id", buyerID,
		"count", len(orders),
	)
	httputil.WriteJSON(w, http.StatusCreated, fromOrders(orders))
}

// HandleList handles GET /orders.
func (h *OrderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListUserOrders(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromOrders(orders))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (r *updateStatusRequest) Validate() error {
	status := models.Status(r.Status)
	if status != models.StatusConfirmed && status != models.StatusCanceled {
		return dErrors.New(dErrors.CodeValidation, "status must be CONFIRMED or CANCELED")
	}
	return nil
}

// HandleUpdateStatus handles PATCH /orders/{orderID}/status.
func (h *OrderHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	orderID, err := id.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[updateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sellerID := requestcontext.UserID(ctx)
	order, err := h.service.UpdateOrderStatus(ctx, sellerID, orderID, models.Status(req.Status))
	if err != nil {
		h.logger.WarnContext(ctx, "order status update failed",
			"request_id", requestID,
			"seller_id", sellerID,
			"order_id", orderID,
			"status", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromOrder(order))
}

// HandleCancel handles POST /orders/{orderID}/cancel.
func (h *OrderHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := id.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	order, err := h.service.CancelOrder(ctx, requestcontext.UserID(ctx), orderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromOrder(order))
}

type cancelAllResponse struct {
	Canceled int `json:"canceled"`
}

// HandleCancelAll handles POST /orders/cancel-all.
func (h *OrderHandler) HandleCancelAll(w http.ResponseWriter, r *http.Request) {
	canceled, err := h.service.CancelAllPending(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cancelAllResponse{Canceled: canceled})
}

type orderDetailResponse struct {
	orderResponse

	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	SellerID    string `json:"seller_id"`
	BuyerID     string `json:"buyer_id,omitempty"`
	BuyerEmail  string `json:"buyer_email,omitempty"`
}

// HandleReport handles GET /orders/report?from=...&to=... with RFC 3339
// bounds.
func (h *OrderHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "from must be an RFC 3339 timestamp"))
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "to must be an RFC 3339 timestamp"))
		return
	}

	details, err := h.service.ListByDateRange(ctx, from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]orderDetailResponse, len(details))
	for i, detail := range details {
		out[i] = orderDetailResponse{
			orderResponse: fromOrder(&detail.Order),
			ProductName:   detail.ProductName,
			UnitPrice:     detail.UnitPrice.StringFixed(2),
			SellerID:      detail.SellerID.String(),
		}
		if !detail.BuyerID.IsNil() {
			out[i].BuyerID = detail.BuyerID.String()
			out[i].BuyerEmail = detail.BuyerEmail
		}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
