package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/export"
	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
	"github.com/issouf7507-dev/codeqr-sub000/internal/middleware"
	"github.com/issouf7507-dev/codeqr-sub000/internal/order"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
	"github.com/issouf7507-dev/codeqr-sub000/internal/qrcode"
	"github.com/issouf7507-dev/codeqr-sub000/internal/user"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

func (h *Handler) adminRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.AdminListOrders)
		r.Get("/export", h.AdminExportOrders)
		r.Get("/{id}", h.AdminGetOrder)
		r.Patch("/{id}/status", h.AdminUpdateOrderStatus)
		r.Delete("/{id}", h.AdminDeleteOrder)
	})
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.AdminListUsers)
		r.Post("/", h.AdminCreateUser)
		r.Get("/export", h.AdminExportUsers)
		r.Get("/{id}", h.AdminGetUser)
		r.Patch("/{id}", h.AdminUpdateUser)
		r.Delete("/{id}", h.AdminDeleteUser)
	})
	r.Route("/qrcodes", func(r chi.Router) {
		r.Get("/", h.AdminListQRCodes)
		r.Post("/generate", h.AdminGenerateQRCodes)
		r.Get("/export", h.AdminExportQRCodes)
		r.Get("/{id}", h.AdminGetQRCode)
		r.Patch("/{id}", h.AdminUpdateQRCode)
		r.Delete("/{id}", h.AdminDeleteQRCode)
	})
	r.Route("/stock", func(r chi.Router) {
		r.Get("/", h.AdminListStock)
		r.Get("/{productId}", h.AdminGetStock)
		r.Put("/{productId}", h.AdminSetStock)
	})
}

// writeExport sends items as a file download in the format asked for by
// ?format=.
func writeExport[T export.Row](h *Handler, w http.ResponseWriter, r *http.Request, base string, header []string, items []T) {
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(base, f, time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, f, header, items); err != nil {
		// Headers are gone; all that is left is to log.
		h.logger.Error("export failed", zap.String("export", base), zap.Error(err),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())))
	}
}

func parseTime(field, v string, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, validate.Errorf(field, "must be a date (2006-01-02) or RFC 3339 timestamp")
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func orderFilter(q url.Values) (order.Filter, error) {
	f := order.Filter{
		Status: order.Status(strings.TrimSpace(q.Get("status"))),
		Q:      strings.TrimSpace(q.Get("q")),
		UserID: strings.TrimSpace(q.Get("userId")),
	}
	var err error
	if f.From, err = parseTime("from", q.Get("from"), false); err != nil {
		return order.Filter{}, err
	}
	if f.To, err = parseTime("to", q.Get("to"), true); err != nil {
		return order.Filter{}, err
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return order.Filter{}, validate.Errorf("to", "must be after from")
	}
	return f, nil
}

func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	p, err := pagination.Parse(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.orders.List(ctx, f, p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) AdminExportOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orders, err := h.orders.All(ctx, f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeExport(h, w, r, "orders", order.ExportHeader, orders)
}

func (h *Handler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	o, err := h.orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	Status     order.Status `json:"status"`
	PaymentRef string       `json:"paymentRef"`
}

func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	o, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status, req.PaymentRef, middleware.GetCorrelationID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) AdminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.orders.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userFilter(q url.Values) user.Filter {
	return user.Filter{
		Q:    strings.TrimSpace(q.Get("q")),
		Role: user.Role(strings.TrimSpace(q.Get("role"))),
	}
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := pagination.Parse(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.users.List(ctx, userFilter(r.URL.Query()), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) AdminExportUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	users, err := h.users.All(ctx, userFilter(r.URL.Query()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeExport(h, w, r, "users", user.ExportHeader, users)
}

func (h *Handler) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var in user.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	u, err := h.users.Create(ctx, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	u, err := h.users.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in user.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	u, err := h.users.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.users.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func qrFilter(q url.Values) qrcode.Filter {
	return qrcode.Filter{
		Status: qrcode.Status(strings.TrimSpace(q.Get("status"))),
		Q:      strings.TrimSpace(q.Get("q")),
		UserID: strings.TrimSpace(q.Get("userId")),
	}
}

func (h *Handler) AdminListQRCodes(w http.ResponseWriter, r *http.Request) {
	p, err := pagination.Parse(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.qrcodes.List(ctx, qrFilter(r.URL.Query()), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) AdminExportQRCodes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	codes, err := h.qrcodes.All(ctx, qrFilter(r.URL.Query()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeExport(h, w, r, "qrcodes", qrcode.ExportHeader, codes)
}

type generateRequest struct {
	Count   int    `json:"count"`
	OrderID string `json:"orderId"`
}

func (h *Handler) AdminGenerateQRCodes(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	codes, err := h.qrcodes.Generate(ctx, req.Count, req.OrderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, codes)
}

func (h *Handler) AdminGetQRCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	q, err := h.qrcodes.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) AdminUpdateQRCode(w http.ResponseWriter, r *http.Request) {
	var in qrcode.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	q, err := h.qrcodes.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) AdminDeleteQRCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.qrcodes.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminListStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	items, err := h.stock.List(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []inventory.StockItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) AdminGetStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	item, err := h.stock.Get(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type setStockRequest struct {
	Available *int `json:"available"`
}

func (h *Handler) AdminSetStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.Available == nil {
		h.writeServiceError(w, r, validate.Errorf("available", "is required"))
		return
	}
	productID := chi.URLParam(r, "productId")

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.stock.SetAvailable(ctx, productID, *req.Available); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	item, err := h.stock.Get(ctx, productID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
