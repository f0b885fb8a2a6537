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
		Namespace: "fieldtrack",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fieldtrack",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Tracking metrics
	FixesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "tracking",
		Name:      "fixes_accepted_total",
		Help:      "Location fixes applied to the session",
	})

	FixesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "tracking",
		Name:      "fixes_dropped_total",
		Help:      "Location fixes discarded before reaching the session state",
	}, []string{"reason"})

	LocationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "tracking",
		Name:      "location_errors_total",
		Help:      "Errors reported by the location stream",
	}, []string{"code"})

	// Route metrics
	RouteRedraws = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "routes",
		Name:      "redraws_total",
		Help:      "Full site route redraws",
	}, []string{"trigger"})

	RouteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "routes",
		Name:      "requests_total",
		Help:      "Per-site routing requests by outcome",
	}, []string{"outcome"})

	RoutingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fieldtrack",
		Subsystem: "routes",
		Name:      "routing_duration_seconds",
		Help:      "Latency of the routing service",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// Search metrics
	SearchQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "search",
		Name:      "queries_total",
		Help:      "Place searches by outcome",
	}, []string{"outcome"})

	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fieldtrack",
		Subsystem: "search",
		Name:      "results",
		Help:      "Number of results returned per search",
		Buckets:   []float64{0, 1, 2, 5, 10},
	})

	// Bridge metrics
	BridgeReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "bridge",
		Name:      "commands_received_total",
		Help:      "Command envelopes accepted by the renderer",
	}, []string{"type"})

	BridgeSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "bridge",
		Name:      "events_sent_total",
		Help:      "Event envelopes handed to the transport",
	}, []string{"type"})

	BridgeDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "bridge",
		Name:      "envelopes_dropped_total",
		Help:      "Envelopes dropped by the bridge",
	}, []string{"reason"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldtrack",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active viewer WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtrack",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

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
