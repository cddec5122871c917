package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the key for internal maintenance endpoints
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware validates API key from X-API-Key header.
// An empty configured key disables every protected route.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			providedKey := r.Header.Get(APIKeyHeader)

			if apiKey == "" || providedKey == "" || subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
