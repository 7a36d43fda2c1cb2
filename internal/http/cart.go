package httpapi

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/issouf7507-dev/codeqr-sub000/internal/cart"
	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
	"github.com/issouf7507-dev/codeqr-sub000/internal/middleware"
	"github.com/issouf7507-dev/codeqr-sub000/internal/order"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

// maxCartQuantity matches what checkout accepts for one line.
const maxCartQuantity = inventory.MaxLineQuantity

var cartKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// cartResponse is the cart snapshot plus whether it reached storage. The
// mutation stands even when persisted is false.
type cartResponse struct {
	cart.State
	Persisted bool `json:"persisted"`
}

func newCartResponse(s cart.State, res cart.SaveResult) cartResponse {
	return cartResponse{State: s, Persisted: res.OK()}
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	PackageID string `json:"packageId"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func cartKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "cartKey")
	if !cartKeyPattern.MatchString(key) {
		return "", validate.Errorf("cartKey", "must be 1-64 letters, digits, '-' or '_'")
	}
	return key, nil
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	writeJSON(w, http.StatusOK, h.carts.Get(ctx, key))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.Quantity < 0 || req.Quantity > maxCartQuantity {
		h.writeServiceError(w, r, validate.Errorf("quantity", "must be between 1 and %d", maxCartQuantity))
		return
	}
	item, err := h.catalog.CartItem(req.ProductID, req.PackageID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	st, res, err := h.carts.AddItemUpTo(ctx, key, item, req.Quantity, maxCartQuantity)
	if errors.Is(err, cart.ErrLineLimit) {
		h.writeServiceError(w, r, validate.Errorf("quantity", "a line may hold at most %d", maxCartQuantity))
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(st, res))
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req quantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.Quantity == nil {
		h.writeServiceError(w, r, validate.Errorf("quantity", "is required"))
		return
	}
	if *req.Quantity > maxCartQuantity {
		h.writeServiceError(w, r, validate.Errorf("quantity", "must be at most %d", maxCartQuantity))
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	st, res := h.carts.UpdateQuantity(ctx, key, chi.URLParam(r, "itemId"), *req.Quantity)
	writeJSON(w, http.StatusOK, newCartResponse(st, res))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	st, res := h.carts.RemoveItem(ctx, key, chi.URLParam(r, "itemId"))
	writeJSON(w, http.StatusOK, newCartResponse(st, res))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	st, res := h.carts.Clear(ctx, key)
	writeJSON(w, http.StatusOK, newCartResponse(st, res))
}

// CheckoutCart orders the stored cart with the posted shipping details and
// drops the cart once the order is committed. A retry with the same
// Idempotency-Key finds the cart gone and gets the recorded order back.
func (h *Handler) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var shipping order.ShippingInfo
	if err := decodeJSON(w, r, &shipping); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	opts := checkoutOptions(r)
	var res order.Result
	err = h.carts.Checkout(ctx, key, func(st cart.State) error {
		var cerr error
		if st.IsEmpty() {
			var replayed bool
			res, replayed, cerr = h.orders.Replay(ctx, opts.IdempotencyKey)
			if cerr != nil || replayed {
				return cerr
			}
			return validate.Errorf("items", "cart is empty")
		}
		res, cerr = h.orders.Checkout(ctx, order.FromCart(st, shipping), opts)
		return cerr
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, checkoutStatus(res), res)
}

func checkoutOptions(r *http.Request) order.CheckoutOptions {
	return order.CheckoutOptions{
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		UserID:         middleware.GetUserID(r.Context()),
		CorrelationID:  middleware.GetCorrelationID(r.Context()),
	}
}

func checkoutStatus(res order.Result) int {
	if res.Status == order.ResultIdempotentReplay {
		return http.StatusOK
	}
	return http.StatusCreated
}
