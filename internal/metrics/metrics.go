package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	HTTPErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by error code",
		},
		[]string{"code"},
	)

	// Ledger
	LedgerOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Balance operations by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: ok|rejected|error
	)

	// Bookings
	BookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_transitions_total",
			Help: "Booking status transitions",
		},
		[]string{"status"},
	)
	LockSweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_lock_sweeps_total",
		Help: "Completed lock expiry sweeps",
	})
	LocksExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_locks_expired_total",
		Help: "Booking locks released by the sweeper",
	})
	LockExpiryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_lock_expiry_failures_total",
		Help: "Lock expiries that failed after all attempts",
	})

	// Payments
	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment status changes",
		},
		[]string{"status"},
	)
	WebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_total",
			Help: "Payment webhook deliveries by event type and outcome",
		},
		[]string{"type", "outcome"},
	)
	GatewayBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "payment_gateway_breaker_state",
		Help: "0 closed, 1 half-open, 2 open",
	})

	// Notifications / SSE
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications created by kind",
		},
		[]string{"kind"},
	)
	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sse_clients",
		Help: "Connected SSE clients",
	})
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "events_dropped_total",
		Help: "Events dropped because a subscriber was slow",
	})

	// Cache
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by result",
		},
		[]string{"result"}, // hit|miss
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// /metrics endpoint handler
var Handler = promhttp.Handler

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal, RequestLatency, HTTPErrorsTotal,
			LedgerOpsTotal,
			BookingsTotal, LockSweepsTotal, LocksExpiredTotal, LockExpiryFailures,
			PaymentsTotal, WebhooksTotal, GatewayBreakerState,
			NotificationsTotal, SSEClients, EventsDropped,
			CacheRequests,
			WorkerQueueDepth,
		)
	})
}
