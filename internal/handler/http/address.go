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

// AddressHandler handles HTTP requests for address book endpoints.
type AddressHandler struct {
	service *service.AddressService
	logger  *slog.Logger
}

// NewAddressHandler creates a new address HTTP handler.
func NewAddressHandler(svc *service.AddressService, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateAddressRequest is the JSON request body for adding an address.
type CreateAddressRequest struct {
	CustomerID    string `json:"customer_id" validate:"required,uuid"`
	RecipientName string `json:"recipient_name" validate:"required,max=255"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
	AddressLine   string `json:"address_line" validate:"required,max=512"`
}

// CreateAddress handles POST /api/v1/addresses
func (h *AddressHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateAddressRequest
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

	address := &domain.Address{
		CustomerID:    req.CustomerID,
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		AddressLine:   req.AddressLine,
	}

	created, err := h.service.CreateAddress(r.Context(), address)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: created})
}

// GetAddress handles GET /api/v1/addresses/{addressId}
func (h *AddressHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	addressID, ok := httputil.ParseUUID(w, chi.URLParam(r, "addressId"))
	if !ok {
		return
	}

	address, err := h.service.GetAddress(r.Context(), addressID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: address})
}
