package middleware

import (
	"context"
	"net/http"
	"strings"
)

const HeaderUserID = "X-User-Id"

// RequireUserID enforces X-User-Id on the wrapped routes and stores it in
// the request context. Authentication happens upstream.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			WriteError(w, r, http.StatusBadRequest, "missing required header: X-User-Id")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalUserID stores X-User-Id in the context when present.
func OptionalUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := strings.TrimSpace(r.Header.Get(HeaderUserID)); uid != "" {
			r = r.WithContext(context.WithValue(r.Context(), ctxUserID, uid))
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}
