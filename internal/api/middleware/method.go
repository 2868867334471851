package middleware

import (
	"net/http"

	"github.com/Togather-Foundation/eventdesk/internal/api/envelope"
)

// MethodGate serves next only for method. Anything else is answered with 405
// before authentication or any store access.
func MethodGate(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method+", "+http.MethodOptions)
			envelope.Error(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
