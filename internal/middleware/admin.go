package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const HeaderAdminToken = "X-Admin-Token"

// AdminToken guards admin routes with a static token sent in X-Admin-Token
// or as a bearer token. With an empty token every request is refused.
func AdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				WriteError(w, r, http.StatusServiceUnavailable, "admin api disabled")
				return
			}
			got := presentedToken(r)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				WriteError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(HeaderAdminToken)); v != "" {
		return v
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
