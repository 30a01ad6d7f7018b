package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landledger",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "landledger",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10, 30},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "landledger",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Ledger metrics
	LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landledger",
		Subsystem: "ledger",
		Name:      "transactions_total",
		Help:      "Contract transactions by method and outcome",
	}, []string{"method", "outcome"})

	LedgerConfirmDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "landledger",
		Subsystem: "ledger",
		Name:      "confirm_duration_seconds",
		Help:      "Time from submission until a transaction receipt was seen",
		Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
	})

	LedgerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landledger",
		Subsystem: "ledger",
		Name:      "calls_total",
		Help:      "Read-only contract calls by method and outcome",
	}, []string{"method", "outcome"})

	// Geometry metrics
	UnparsableLocations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "landledger",
		Subsystem: "geometry",
		Name:      "unparsable_locations_total",
		Help:      "Land locations skipped from map rendering because they could not be parsed",
	})

	LocationSuggestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landledger",
		Subsystem: "ai",
		Name:      "location_suggestions_total",
		Help:      "AI location suggestions by outcome",
	}, []string{"outcome"})

	// Indexer metrics
	IndexerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landledger",
		Subsystem: "indexer",
		Name:      "runs_total",
		Help:      "Ledger index sync runs by outcome",
	}, []string{"outcome"})

	IndexedLands = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "landledger",
		Subsystem: "indexer",
		Name:      "lands",
		Help:      "Existing lands seen by the last sync",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "landledger",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landledger",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "landledger",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "landledger",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "landledger",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "landledger",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		// Route pattern keeps addresses and land IDs out of label values.
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}

// Outcome maps an error to the outcome label used across counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
