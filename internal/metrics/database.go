package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DBQueryDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_errors_total",
			Help:      "Total number of database errors",
		},
		[]string{"operation", "error_type"},
	)
)

// PoolStats is a point-in-time view of a connection pool.
type PoolStats struct {
	Total           int32
	Acquired        int32
	Idle            int32
	Max             int32
	AcquireCount    int64
	AcquireDuration time.Duration
	EmptyAcquire    int64
}

// StatsOf reads pool statistics from pgxpool.
func StatsOf(pool *pgxpool.Pool) func() PoolStats {
	return func() PoolStats {
		s := pool.Stat()
		return PoolStats{
			Total:           s.TotalConns(),
			Acquired:        s.AcquiredConns(),
			Idle:            s.IdleConns(),
			Max:             s.MaxConns(),
			AcquireCount:    s.AcquireCount(),
			AcquireDuration: s.AcquireDuration(),
			EmptyAcquire:    s.EmptyAcquireCount(),
		}
	}
}

// poolCollector reads pool statistics at scrape time.
type poolCollector struct {
	stats func() PoolStats

	conns          *prometheus.Desc
	maxConns       *prometheus.Desc
	acquires       *prometheus.Desc
	acquireSeconds *prometheus.Desc
	emptyAcquires  *prometheus.Desc
}

func NewPoolCollector(stats func() PoolStats) prometheus.Collector {
	name := func(n string) string { return prometheus.BuildFQName(namespace, "db", n) }
	return &poolCollector{
		stats:          stats,
		conns:          prometheus.NewDesc(name("connections"), "Database connections by state", []string{"state"}, nil),
		maxConns:       prometheus.NewDesc(name("connections_max"), "Maximum database connections allowed", nil, nil),
		acquires:       prometheus.NewDesc(name("acquires_total"), "Connections acquired from the pool", nil, nil),
		acquireSeconds: prometheus.NewDesc(name("acquire_seconds_total"), "Time spent waiting to acquire connections", nil, nil),
		emptyAcquires:  prometheus.NewDesc(name("empty_acquires_total"), "Acquires that had to wait for a connection", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.conns
	ch <- c.maxConns
	ch <- c.acquires
	ch <- c.acquireSeconds
	ch <- c.emptyAcquires
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.conns, prometheus.GaugeValue, float64(s.Acquired), "acquired")
	ch <- prometheus.MustNewConstMetric(c.conns, prometheus.GaugeValue, float64(s.Idle), "idle")
	ch <- prometheus.MustNewConstMetric(c.conns, prometheus.GaugeValue, float64(s.Total-s.Acquired-s.Idle), "constructing")
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(s.Max))
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(s.AcquireCount))
	ch <- prometheus.MustNewConstMetric(c.acquireSeconds, prometheus.CounterValue, s.AcquireDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.emptyAcquires, prometheus.CounterValue, float64(s.EmptyAcquire))
}

// RegisterPool exposes pool statistics on Registry.
func RegisterPool(pool *pgxpool.Pool) error {
	return Registry.Register(NewPoolCollector(StatsOf(pool)))
}

// RecordQuery observes one store call. Use with a deferred closure so err is
// read after the call returns:
//
//	start := time.Now()
//	defer func() { metrics.RecordQuery("users.get", start, err) }()
func RecordQuery(operation string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}

	errorType := "query_error"
	switch {
	case errors.Is(err, context.Canceled):
		errorType = "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		errorType = "timeout"
	}
	DBErrors.WithLabelValues(operation, errorType).Inc()
}
