package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware_KnownRoute(t *testing.T) {
	handler := HTTPMiddleware("/api/events/list")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/events/list", "201"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/list", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/events/list", "201"))
	assert.Equal(t, before+1, after)
}

func TestHTTPMiddleware_UnknownPathCollapsed(t *testing.T) {
	handler := HTTPMiddleware("/api/events/list")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "200"))
	for _, path := range []string{"/wp-login.php", "/.env", "/api/events/list/extra"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "200"))
	assert.Equal(t, before+3, after)
}

func TestResponseWriter(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _ = rw.Write([]byte("Hello, World!"))

	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.Equal(t, 13, rw.bytesWritten)
}

func TestRecordQuery(t *testing.T) {
	before := testutil.ToFloat64(DBErrors.WithLabelValues("test_failed", "canceled"))

	RecordQuery("test_select", time.Now(), nil)
	RecordQuery("test_failed", time.Now(), errors.Join(errors.New("select"), context.Canceled))

	assert.NotZero(t, testutil.CollectAndCount(DBQueryDuration))
	assert.Equal(t, before+1, testutil.ToFloat64(DBErrors.WithLabelValues("test_failed", "canceled")))
}

func TestPoolCollector(t *testing.T) {
	collector := NewPoolCollector(func() PoolStats {
		return PoolStats{Total: 5, Acquired: 2, Idle: 3, Max: 25, AcquireCount: 40, AcquireDuration: 1500 * time.Millisecond}
	})

	assert.Equal(t, 7, testutil.CollectAndCount(collector))

	expected := `
# HELP eventdesk_db_connections Database connections by state
# TYPE eventdesk_db_connections gauge
eventdesk_db_connections{state="acquired"} 2
eventdesk_db_connections{state="constructing"} 0
eventdesk_db_connections{state="idle"} 3
# HELP eventdesk_db_acquire_seconds_total Time spent waiting to acquire connections
# TYPE eventdesk_db_acquire_seconds_total counter
eventdesk_db_acquire_seconds_total 1.5
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"eventdesk_db_connections", "eventdesk_db_acquire_seconds_total"))
}

func TestHandler(t *testing.T) {
	AppInfo.WithLabelValues("test", "abc123", "2026-01-30").Set(1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventdesk_app_info")
}
