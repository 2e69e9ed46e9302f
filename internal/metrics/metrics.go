package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Alert Broadcaster Metrics
var (
	// BroadcasterConnectedClients tracks the number of connected WebSocket clients
	BroadcasterConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alert_broadcaster_connected_clients",
			Help: "Number of connected WebSocket alert clients",
		},
	)

	// BroadcasterMessagesPublished tracks alert messages fanned out
	BroadcasterMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_broadcaster_messages_published_total",
			Help: "Total alert messages published to the WebSocket hub",
		},
	)

	// BroadcasterSlowClientsEvicted tracks slow clients evicted due to full buffers
	BroadcasterSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_broadcaster_slow_clients_evicted_total",
			Help: "Total slow WebSocket clients evicted due to buffer full",
		},
	)

	// BroadcasterPanicsTotal tracks broadcaster panic recoveries
	BroadcasterPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_broadcaster_panics_total",
			Help: "Total broadcaster panic recoveries",
		},
	)

	// BroadcasterStopTimeoutsTotal tracks broadcaster stops that exceeded timeout
	BroadcasterStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_broadcaster_stop_timeouts_total",
			Help: "Broadcaster stops that exceeded timeout",
		},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsTotal tracks WebSocket connection attempts by result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total WebSocket connection attempts by result (success/error/rejected)",
		},
		[]string{"result"},
	)

	// WebSocketMessageSendDuration tracks WebSocket message send duration
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// WebSocketPingFailures tracks WebSocket ping failures
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket ping failures (client not responding)",
		},
	)

	// WebSocketIdleDisconnects tracks disconnects due to idle timeout
	WebSocketIdleDisconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_idle_disconnects_total",
			Help: "Total WebSocket connections closed due to idle timeout",
		},
	)
)

// Power BI Metrics
var (
	// PowerBIRequestsTotal tracks Power BI REST calls by operation and status
	PowerBIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerbi_requests_total",
			Help: "Total Power BI REST API calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	// PowerBIRequestDuration tracks Power BI REST call latency
	PowerBIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powerbi_request_duration_seconds",
			Help:    "Power BI REST API call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// PowerBITokenRefreshes tracks AAD token acquisitions by result
	PowerBITokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerbi_token_refreshes_total",
			Help: "Total AAD access token acquisitions by result",
		},
		[]string{"result"},
	)

	// PowerBICircuitState tracks the circuit breaker state (0=closed, 1=half-open, 2=open)
	PowerBICircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "powerbi_circuit_breaker_state",
			Help: "Power BI circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Prediction Metrics
var (
	// PredictionsTotal tracks model predictions by model and result
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total model predictions by model and result (ok/error/unavailable)",
		},
		[]string{"model", "result"},
	)

	// PredictionDuration tracks scoring latency by model
	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ml_prediction_duration_seconds",
			Help:    "Model scoring duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"model"},
	)
)

// Alert Metrics
var (
	// AlertsTriggeredTotal tracks triggered alerts by type
	AlertsTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Total alerts triggered by alert type",
		},
		[]string{"type"},
	)

	// EmailsSentTotal tracks outbound emails by template and result
	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total outbound emails by template and result",
		},
		[]string{"template", "result"},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Cache Metrics
var (
	// CacheHits tracks Redis cache hits by cache name
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total Redis cache hits by cache",
		},
		[]string{"cache"},
	)

	// CacheMisses tracks Redis cache misses by cache name
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total Redis cache misses by cache",
		},
		[]string{"cache"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)
