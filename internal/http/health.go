package httpapi

import (
	"context"
	"net/http"
	"time"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "codeqr-storefront",
	})
}

type probeResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Ready runs every probe and answers 503 when any of them fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make([]probeResult, 0, len(h.probes))
	for _, p := range h.probes {
		res := probeResult{Name: p.Name, Status: "ok"}
		if err := p.Check(ctx); err != nil {
			res.Status = "down"
			res.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
		results = append(results, res)
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
}
