package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRemoteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_remote_requests_total",
		Help: "Total number of remote API calls made by the data gateway",
	}, []string{"operation", "outcome"})

	GatewayFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_fallbacks_total",
		Help: "Total number of gateway operations served by the local mock database",
	}, []string{"operation", "reason"})

	GatewayRemoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_remote_latency_seconds",
		Help:    "Latency of remote API calls made by the data gateway",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	GatewayCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_circuit_state",
		Help: "Circuit breaker state of the remote API (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	PersistenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persistence_failures_total",
		Help: "Total number of swallowed durable storage failures",
	}, []string{"op"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_notifications_total",
		Help: "Total number of notifications raised by the store",
	}, []string{"type"})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrderStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_updates_total",
		Help: "Total number of order status updates",
	}, []string{"status"})

	AuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Total number of authentication attempts",
	}, []string{"method", "outcome"})

	CatalogCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_requests_total",
		Help: "Catalog query cache lookups",
	}, []string{"result"})

	CatalogSeedsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_seeds_total",
		Help: "Total number of catalog regenerations",
	})

	OracleRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_requests_total",
		Help: "Total number of AI oracle requests",
	}, []string{"feature", "outcome"})

	OracleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oracle_latency_seconds",
		Help:    "Latency of AI oracle requests",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
	}, []string{"feature"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
