package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/issouf7507-dev/codeqr-sub000/internal/middleware"
	"github.com/issouf7507-dev/codeqr-sub000/internal/qrcode"
)

func (h *Handler) LookupQRCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	v, err := h.qrcodes.Lookup(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) ActivateQRCode(w http.ResponseWriter, r *http.Request) {
	var req qrcode.ActivateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.qrcodes.Activate(ctx, chi.URLParam(r, "code"), req, middleware.GetCorrelationID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type redirectRequest struct {
	RedirectURL string `json:"redirectUrl"`
}

func (h *Handler) UpdateQRCodeRedirect(w http.ResponseWriter, r *http.Request) {
	var req redirectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	q, err := h.qrcodes.UpdateRedirect(ctx, chi.URLParam(r, "code"), middleware.GetUserID(r.Context()), req.RedirectURL)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q.Public())
}

// RedirectQRCode is what a printed code points at.
func (h *Handler) RedirectQRCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	target, err := h.qrcodes.Resolve(ctx, chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, qrcode.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}
