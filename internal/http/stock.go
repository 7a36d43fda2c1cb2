package httpapi

import (
	"net/http"

	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
)

type stockCheckRequest struct {
	Items []inventory.PackageLine `json:"items"`
}

// CheckStock answers whether the requested packages can be shipped. A
// shortage is a 200 with available=false.
func (h *Handler) CheckStock(w http.ResponseWriter, r *http.Request) {
	var req stockCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.stock.Check(ctx, req.Items)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
