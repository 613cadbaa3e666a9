package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ServiceKey returns middleware requiring "Authorization: Bearer <key>".
// An empty key disables the check.
func ServiceKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(key)) != 1 {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "A valid service key is required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
