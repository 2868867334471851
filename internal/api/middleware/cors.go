package middleware

import (
	"net/http"
	"strings"

	"github.com/Togather-Foundation/eventdesk/internal/config"
	"github.com/rs/zerolog"
)

// CORS answers browser clients.
//
// With AllowAllOrigins every origin is accepted and "*" is returned; otherwise
// the Origin header must match one of AllowedOrigins (case-insensitive).
// Rejected origins are logged and served without CORS headers.
//
// Every OPTIONS request is treated as a preflight and answered with 200 and
// an empty body, before method checks and authentication run.
func CORS(cfg config.CORSConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowedOrigin := ""
			switch {
			case cfg.AllowAllOrigins:
				allowedOrigin = "*"
			case origin != "" && isOriginAllowed(origin, cfg.AllowedOrigins):
				allowedOrigin = origin
				w.Header().Add("Vary", "Origin")
			case origin != "":
				logger.Warn().
					Str("origin", origin).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("CORS request rejected: origin not in allow-list")
			}

			if allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	origin = strings.ToLower(strings.TrimSpace(origin))
	for _, allowed := range allowedOrigins {
		if strings.ToLower(strings.TrimSpace(allowed)) == origin {
			return true
		}
	}
	return false
}
