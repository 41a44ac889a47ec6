package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for TokenVault.
type Metrics struct {
	// --- Vault operations ---
	OpsTotal           *prometheus.CounterVec
	OpDuration         *prometheus.HistogramVec
	Unauthorized       *prometheus.CounterVec
	ReconcileUnderflow prometheus.Counter

	// --- Events ---
	EventsPublished    *prometheus.CounterVec
	EventPublishErrors prometheus.Counter

	// --- Snapshot store ---
	StoreReads  *prometheus.CounterVec
	StoreWrites *prometheus.CounterVec

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// --- NATS operation requests ---
	OpsRequests *prometheus.CounterVec

	// --- Idempotent replay cache ---
	IdempotentReplays  prometheus.Counter
	ReplayLRUSize      prometheus.Gauge
	ReplayLRUEvictions prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	opBuckets := []float64{
		0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005,
		0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	}

	return &Metrics{
		// Vault operations
		OpsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_operations_total",
			Help: "Vault operations by outcome",
		}, []string{"op", "result"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_operation_duration_seconds",
			Help:    "End-to-end vault operation latency",
			Buckets: opBuckets,
		}, []string{"op"}),

		Unauthorized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_unauthorized_total",
			Help: "Operations rejected for missing controller role",
		}, []string{"op"}),

		ReconcileUnderflow: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vault_reconcile_underflow_total",
			Help: "Reconciliations where live balance fell below the snapshot",
		}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_events_published_total",
			Help: "Operation events published to the stream",
		}, []string{"kind"}),

		EventPublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vault_event_publish_errors_total",
			Help: "Event publishes that failed (operations still committed)",
		}),

		// Snapshot store
		StoreReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_store_reads_total",
			Help: "Snapshot store reads",
		}, []string{"result"}),

		StoreWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_store_writes_total",
			Help: "Snapshot store writes",
		}, []string{"result"}),

		// Query API
		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		// NATS operation requests
		OpsRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_ops_requests_total",
			Help: "Operation requests consumed from the ops stream",
		}, []string{"op", "result"}),

		// Idempotent replay cache
		IdempotentReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vault_idempotency_replays_total",
			Help: "Requests answered from the replay cache",
		}),

		ReplayLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vault_replay_lru_size",
			Help: "Current replay cache occupancy",
		}),

		ReplayLRUEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vault_replay_lru_evictions_total",
			Help: "Replay cache evictions",
		}),
	}
}
