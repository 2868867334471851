package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/api/envelope"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

// Healthz reports liveness. It never touches dependencies.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope.Success(w, http.StatusOK, "OK", nil)
	})
}

// Readyz pings the database with a 2s budget and answers 503 when it fails.
func Readyz(db Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			envelope.Error(w, r, http.StatusServiceUnavailable, "Database not configured", nil)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		start := time.Now()
		err := db.Ping(ctx)
		latency := time.Since(start).Milliseconds()
		if err != nil {
			envelope.Error(w, r, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}

		envelope.Success(w, http.StatusOK, "Ready", map[string]CheckResult{
			"database": {Status: "pass", LatencyMs: latency},
		})
	})
}
