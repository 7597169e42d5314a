package middleware

import (
	"crypto/subtle"
	"net/http"
)

// AdminToken guards admin routes with a shared secret passed as the
// "token" query parameter. An empty configured token rejects everything.
func AdminToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := []byte(r.URL.Query().Get("token"))
			if len(expected) == 0 || subtle.ConstantTimeCompare(given, expected) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
