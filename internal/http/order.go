package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/issouf7507-dev/codeqr-sub000/internal/middleware"
	"github.com/issouf7507-dev/codeqr-sub000/internal/order"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// CreateOrder answers 201 for a new order and 200 when an Idempotency-Key
// replays an earlier one.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.orders.Checkout(ctx, req, checkoutOptions(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, checkoutStatus(res), res)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	o, err := h.orders.Get(ctx, chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ListUserOrders only lists the caller's own orders.
func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID != middleware.GetUserID(r.Context()) {
		middleware.WriteError(w, r, http.StatusForbidden, "orders of another user")
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orders, err := h.orders.ListByUser(ctx, userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}
