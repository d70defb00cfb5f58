package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Gateway metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_connections",
			Help: "Connections currently joined",
		},
	)

	AuthenticationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_authentication_failures_total",
			Help: "Connections or frames rejected for an invalid credential",
		},
	)

	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Messages appended to the store",
		},
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_rejected_total",
			Help: "send_message events answered with an error",
		},
		[]string{"code"},
	)

	Broadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_broadcast_deliveries_total",
			Help: "Events accepted by subscriber queues during broadcasts",
		},
	)

	SlowConsumersEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_slow_consumers_evicted_total",
			Help: "Connections closed because their outbound queue was full",
		},
	)

	ReplayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_replay_duration_seconds",
			Help:    "Time to gather and deliver previous messages",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Process metrics
	ProcessRSSBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_process_rss_bytes",
			Help: "Resident memory of the gateway process",
		},
	)

	ProcessCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_process_cpu_percent",
			Help: "CPU usage of the gateway process",
		},
	)

	StoreValueLogGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_store_value_log_gc_total",
			Help: "Value log garbage collection passes",
		},
		[]string{"result"}, // "rewritten" or "noop"
	)
)
