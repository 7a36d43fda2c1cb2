package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/catalog"
	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
	"github.com/issouf7507-dev/codeqr-sub000/internal/middleware"
	"github.com/issouf7507-dev/codeqr-sub000/internal/order"
	"github.com/issouf7507-dev/codeqr-sub000/internal/qrcode"
	"github.com/issouf7507-dev/codeqr-sub000/internal/user"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	middleware.WriteError(w, r, status, msg)
}

// outOfStockResponse is the 409 body of a checkout that could not reserve stock.
type outOfStockResponse struct {
	middleware.ErrorResponse
	Depleted []inventory.DepletedLine `json:"depleted"`
}

// writeServiceError maps domain errors to HTTP statuses. Anything unknown is
// logged and reported as a bare 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	cid := middleware.GetCorrelationID(r.Context())

	var verr *validate.Error
	if errors.As(err, &verr) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, middleware.ErrorResponse{
			Error:         verr.Error(),
			Code:          "VALIDATION",
			Field:         verr.Field,
			CorrelationID: cid,
		})
		return
	}

	var oos *order.OutOfStockError
	if errors.As(err, &oos) {
		writeJSON(w, http.StatusConflict, outOfStockResponse{
			ErrorResponse: middleware.ErrorResponse{Error: "out of stock", Code: "OUT_OF_STOCK", CorrelationID: cid},
			Depleted:      oos.Depleted,
		})
		return
	}

	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("correlation_id", cid))
		msg = "internal error"
	}
	middleware.WriteErrorResponse(w, status, middleware.ErrorResponse{Error: msg, Code: code, CorrelationID: cid})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, qrcode.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrPackageNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, qrcode.ErrDisabled):
		return http.StatusForbidden, "QR_DISABLED"
	case errors.Is(err, qrcode.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, qrcode.ErrAlreadyActive):
		return http.StatusConflict, "QR_ALREADY_ACTIVE"
	case errors.Is(err, qrcode.ErrNotActive):
		return http.StatusConflict, "QR_NOT_ACTIVE"
	case errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_TAKEN"
	case errors.Is(err, order.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, order.ErrIdempotencyMismatch):
		return http.StatusUnprocessableEntity, "IDEMPOTENCY_MISMATCH"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	}
	return http.StatusInternalServerError, ""
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return validate.Errorf("", "request body is empty")
		}
		return validate.Errorf("", "invalid JSON body: %v", err)
	}
	if dec.More() {
		return validate.Errorf("", "request body must hold a single JSON value")
	}
	return nil
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}
