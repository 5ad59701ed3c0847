package handler

import (
	"net/http"
	"strings"

	"eato/internal/model"
	"eato/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Place handles POST /api/orders/place-order requests.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var req model.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	order, err := h.service.Place(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order, h.logger)
}

// UpdateStatus handles PUT /api/orders/update-order-status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.UpdateStatus(r.Context(), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

// GetByID handles GET /api/orders/{orderId} requests. Customers may only
// read their own orders.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), r.PathValue("orderId"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if !id.IsAdmin() && !strings.EqualFold(order.Email, id.Email) {
		h.logger.Warn().Int64("user_id", id.UserID).Str("order_id", order.ID).Msg("order read by non-owner")
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, model.ErrForbidden.Message, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}

// Lookup handles GET /api/users/order?orderId= requests.
func (h *OrderHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetByID(r.Context(), r.URL.Query().Get("orderId"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}
