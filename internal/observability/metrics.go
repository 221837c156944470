package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RequestsCreated counts permission change requests created, by targeting mode.
	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permsync_requests_created_total",
		Help: "Total number of permission change requests created, by targeting mode",
	}, []string{"mode"})

	// TerminalOutcomes counts terminal statuses written by the authority,
	// by decoded status and error kind.
	TerminalOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permsync_terminal_outcomes_total",
		Help: "Total number of terminal statuses applied, by decoded status and error kind",
	}, []string{"status", "kind"})

	// SubmissionRetries counts re-deliveries of pending requests to the authority.
	SubmissionRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permsync_submission_retries_total",
		Help: "Total number of authority submission retries, by result",
	}, []string{"result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "permsync_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WatchConnections is the gauge of watcher connections per request.
	WatchConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "permsync_watch_connections",
		Help: "Number of WebSocket watcher connections per request",
	}, []string{"request_id"})

	// WatchConnectionsTotal is the gauge of total watcher connections.
	WatchConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "permsync_watch_connections_total",
		Help: "Total number of active WebSocket watcher connections",
	})

	// WatchEventsTotal counts watch notification events by type.
	WatchEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permsync_watch_events_total",
		Help: "Total watch notification events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts frames dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permsync_websocket_backpressure_drops_total",
		Help: "Total WebSocket frames dropped due to backpressure, by hub and reason",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// WatchMetrics tracks watcher connection counts per request.
type WatchMetrics struct {
	requestCounts map[string]int
}

// NewWatchMetrics returns a new WatchMetrics instance.
func NewWatchMetrics() *WatchMetrics {
	return &WatchMetrics{
		requestCounts: make(map[string]int),
	}
}

// IncrementRequest increments the watcher count for the request.
func (m *WatchMetrics) IncrementRequest(requestID string) {
	m.requestCounts[requestID]++
	WatchConnections.WithLabelValues(requestID).Inc()
	WatchConnectionsTotal.Inc()
}

// DecrementRequest decrements the watcher count for the request.
func (m *WatchMetrics) DecrementRequest(requestID string) {
	if m.requestCounts[requestID] > 0 {
		m.requestCounts[requestID]--
	}
	WatchConnections.WithLabelValues(requestID).Dec()
	WatchConnectionsTotal.Dec()
}

// GetRequestCount returns the current watcher count for the request.
func (m *WatchMetrics) GetRequestCount(requestID string) int {
	return m.requestCounts[requestID]
}

// RecordWatchEvent increments the watch events counter for the event type.
func (*WatchMetrics) RecordWatchEvent(eventType string) {
	WatchEventsTotal.WithLabelValues(eventType).Inc()
}
