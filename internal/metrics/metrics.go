// Package metrics provides Prometheus instrumentation for the return
// risk service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "returnrisk",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "returnrisk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// PredictionsTotal counts predictions served, by risk level.
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "returnrisk",
			Name:      "predictions_total",
			Help:      "Total predictions served by risk level.",
		},
		[]string{"level"},
	)

	// PredictionDuration observes scoring latency for cache misses.
	PredictionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "returnrisk",
		Name:      "prediction_duration_seconds",
		Help:      "Time to engineer features and score one prediction.",
		Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
	})

	// CacheHitsTotal and CacheMissesTotal track prediction cache
	// effectiveness.
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "returnrisk",
		Name:      "cache_hits_total",
		Help:      "Prediction cache hits.",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "returnrisk",
		Name:      "cache_misses_total",
		Help:      "Prediction cache misses.",
	})

	// BatchSize observes the item count of batch prediction requests.
	BatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "returnrisk",
		Name:      "batch_size",
		Help:      "Item count per batch prediction request.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
	})

	// HistoryWriteFailuresTotal counts best-effort history writes that
	// failed. Predictions are still served when this rises.
	HistoryWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "returnrisk",
		Name:      "history_write_failures_total",
		Help:      "Prediction history writes that failed.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "returnrisk", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "returnrisk", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "returnrisk", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PredictionsTotal,
		PredictionDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		BatchSize,
		HistoryWriteFailuresTotal,
		DBOpenConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and the runtime
// goroutine count into gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
