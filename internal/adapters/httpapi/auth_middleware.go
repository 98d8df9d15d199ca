package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const HeaderAdminKey = "X-Admin-Key"

// NewAdminKeyMiddleware enforces X-Admin-Key: <secret> on the ops endpoints.
//
// Rejected requests get a 403 JSON error and never reach the wrapped handler, so they cannot
// touch idempotency state. Both the secret and the header are compared trimmed; a blank
// secret rejects everything.
func NewAdminKeyMiddleware(secret string) func(http.Handler) http.Handler {
	want := []byte(strings.TrimSpace(secret))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get(HeaderAdminKey))
			if got == "" {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "missing "+HeaderAdminKey+" header", nil)
				return
			}
			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "invalid admin key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
