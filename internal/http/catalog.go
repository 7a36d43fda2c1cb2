package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/issouf7507-dev/codeqr-sub000/internal/catalog"
)

type packageView struct {
	catalog.Package
	Discount int `json:"discount,omitempty"`
}

type productView struct {
	catalog.Product
	Packages []packageView `json:"packages"`
}

func newProductView(p catalog.Product) productView {
	v := productView{Product: p, Packages: make([]packageView, 0, len(p.Packages))}
	for _, pkg := range p.Packages {
		v.Packages = append(v.Packages, packageView{Package: pkg, Discount: pkg.Discount()})
	}
	return v
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.List()
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, newProductView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductView(p))
}
