package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thuannguyen2034/food-market-sub000/internal/domain"
	"github.com/thuannguyen2034/food-market-sub000/internal/service"
	"github.com/thuannguyen2034/food-market-sub000/pkg/httputil"
	"github.com/thuannguyen2034/food-market-sub000/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// SetCartItemRequest is the JSON request body for adding or replacing a cart item.
type SetCartItemRequest struct {
	ProductID        string `json:"product_id" validate:"required,uuid"`
	Quantity         int    `json:"quantity" validate:"required,gte=1"`
	ProductName      string `json:"product_name" validate:"required,max=255"`
	ProductThumbnail string `json:"product_thumbnail" validate:"omitempty,url"`
}

// GetCart handles GET /api/v1/carts/{customerId}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	customerID, ok := httputil.ParseUUID(w, chi.URLParam(r, "customerId"))
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), customerID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// SetItem handles POST /api/v1/carts/{customerId}/items
func (h *CartHandler) SetItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := httputil.ParseUUID(w, chi.URLParam(r, "customerId"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SetCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item := domain.CartItem{
		ProductID:        req.ProductID,
		Quantity:         req.Quantity,
		ProductName:      req.ProductName,
		ProductThumbnail: req.ProductThumbnail,
	}

	cart, err := h.service.SetItem(r.Context(), customerID.String(), item)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/carts/{customerId}/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := httputil.ParseUUID(w, chi.URLParam(r, "customerId"))
	if !ok {
		return
	}
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), customerID.String(), productID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}
