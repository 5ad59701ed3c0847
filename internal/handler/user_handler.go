package handler

import (
	"net/http"
	"strconv"

	"eato/internal/model"
	"eato/internal/service"

	"github.com/rs/zerolog"
)

// UserHandler handles account views, order history and the cart.
type UserHandler struct {
	users  service.UserService
	orders service.OrderService
	carts  service.CartService
	logger zerolog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users service.UserService, orders service.OrderService, carts service.CartService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		orders: orders,
		carts:  carts,
		logger: logger.With().Str("handler", "user").Logger(),
	}
}

// userID parses the {id} path segment or writes a 400.
func userID(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "Invalid user id", logger)
		return 0, false
	}
	return id, true
}

// List handles GET /api/users requests.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, users, h.logger)
}

// GetByID handles GET /api/users/{id} requests.
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, user, h.logger)
}

// OrderHistory handles GET /api/users/{id}/order-history requests.
func (h *UserHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), id)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders, h.logger)
}

// MyOrders handles GET /api/users/my-orders requests.
func (h *UserHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.orders.ListByEmail(r.Context(), id.Email)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders, h.logger)
}

// AddToCart handles PUT /api/users/add-to-cart requests.
func (h *UserHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CartUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	resp, err := h.carts.Apply(r.Context(), id.Email, &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

// Cart handles GET /api/users/cart requests.
func (h *UserHandler) Cart(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.carts.Get(r.Context(), id.Email)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart, h.logger)
}
