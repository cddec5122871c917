package middleware

import (
	"net/http"
)

// RequireAdmin allows only sessions that were created for an administrator.
// Requests without a session get 401, non-administrators get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		if !sess.IsAdmin {
			writeJSONError(w, http.StatusForbidden, "administrator access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
