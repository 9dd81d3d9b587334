package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thuannguyen2034/food-market-sub000/internal/service"
	"github.com/thuannguyen2034/food-market-sub000/pkg/httputil"
	"github.com/thuannguyen2034/food-market-sub000/pkg/pagination"
	"github.com/thuannguyen2034/food-market-sub000/pkg/validator"
)

// InventoryHandler handles HTTP requests for batch and stock endpoints.
type InventoryHandler struct {
	service *service.InventoryService
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(svc *service.InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ReceiveBatchRequest is the JSON request body for receiving a stock batch.
type ReceiveBatchRequest struct {
	ProductID string    `json:"product_id" validate:"required,uuid"`
	BatchCode string    `json:"batch_code" validate:"required,max=64"`
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// AdjustStockRequest is the JSON request body for a manual batch adjustment.
type AdjustStockRequest struct {
	Delta   int    `json:"delta" validate:"required"`
	Reason  string `json:"reason" validate:"required,oneof=order manual destroyed restock"`
	ActorID string `json:"actor_id" validate:"omitempty,max=64"`
}

// DestroyBatchRequest is the JSON request body for destroying a batch.
type DestroyBatchRequest struct {
	Reason  string `json:"reason" validate:"omitempty,max=255"`
	ActorID string `json:"actor_id" validate:"omitempty,max=64"`
}

// AllocateStockRequest is the JSON request body for a direct allocation.
type AllocateStockRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// --- Handlers ---

// ReceiveBatch handles POST /api/v1/batches
func (h *InventoryHandler) ReceiveBatch(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ReceiveBatchRequest
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

	batch, err := h.service.ReceiveBatch(r.Context(), req.ProductID, req.BatchCode, req.ExpiresAt, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: batch})
}

// GetBatch handles GET /api/v1/batches/{batchId}
func (h *InventoryHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := httputil.ParseUUID(w, chi.URLParam(r, "batchId"))
	if !ok {
		return
	}

	batch, err := h.service.GetBatch(r.Context(), batchID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: batch})
}

// ListAdjustments handles GET /api/v1/batches/{batchId}/adjustments
func (h *InventoryHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	batchID, ok := httputil.ParseUUID(w, chi.URLParam(r, "batchId"))
	if !ok {
		return
	}

	params := pagination.FromRequest(r)

	adjustments, total, err := h.service.ListAdjustments(r.Context(), batchID.String(), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: httputil.NewPaginatedResponse(adjustments, total, params.Page, params.PerPage),
	})
}

// AdjustStock handles POST /api/v1/batches/{batchId}/adjust
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	batchID, ok := httputil.ParseUUID(w, chi.URLParam(r, "batchId"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AdjustStockRequest
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

	batch, err := h.service.AdjustStock(r.Context(), batchID.String(), req.Delta, req.Reason, req.ActorID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: batch})
}

// DestroyBatch handles POST /api/v1/batches/{batchId}/destroy
func (h *InventoryHandler) DestroyBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := httputil.ParseUUID(w, chi.URLParam(r, "batchId"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req DestroyBatchRequest
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

	batch, err := h.service.DestroyBatch(r.Context(), batchID.String(), req.Reason, req.ActorID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: batch})
}

// GetStockAvailability handles GET /api/v1/products/{productId}/stock
func (h *InventoryHandler) GetStockAvailability(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	available, err := h.service.GetStockAvailability(r.Context(), productID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"product_id": productID.String(),
		"available":  available,
	}})
}

// GetStockInfo handles GET /api/v1/products/{productId}/stock/info
func (h *InventoryHandler) GetStockInfo(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	info, err := h.service.GetStockInfo(r.Context(), productID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: info})
}

// ListBatches handles GET /api/v1/products/{productId}/batches
func (h *InventoryHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	batches, err := h.service.ListBatches(r.Context(), productID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: batches})
}

// AllocateStock handles POST /api/v1/inventory/allocate
func (h *InventoryHandler) AllocateStock(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AllocateStockRequest
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

	allocations, err := h.service.Allocate(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: allocations})
}

