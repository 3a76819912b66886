package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Server metrics collectors
var (
	// Tables

	TablesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mesa_tables_total",
			Help: "Number of registered tables",
		},
		[]string{"status", "kind"},
	)

	TableOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mesa_table_operations_total",
			Help: "Total number of table registry operations",
		},
		[]string{"operation", "status"},
	)

	TokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mesa_token_verifications_total",
			Help: "Total number of table token verifications by result",
		},
		[]string{"result"},
	)

	QRRenderErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mesa_qr_render_errors_total",
			Help: "Total number of failed QR image renders",
		},
	)

	// Orders

	OrdersTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mesa_orders_total",
			Help: "Number of stored orders by status",
		},
		[]string{"status"},
	)

	OrderOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mesa_order_operations_total",
			Help: "Total number of order ledger operations",
		},
		[]string{"operation", "status"},
	)

	// Realtime

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mesa_realtime_connections",
			Help: "Number of open realtime connections",
		},
	)

	RealtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mesa_realtime_events_total",
			Help: "Total number of events published",
		},
		[]string{"event"},
	)

	RealtimeDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mesa_realtime_dropped_total",
			Help: "Total number of event deliveries dropped for slow subscribers",
		},
		[]string{"event"},
	)

	// Persistence

	StoreFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mesa_store_flushes_total",
			Help: "Total number of document store flushes",
		},
		[]string{"backend", "status"},
	)

	StoreFlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mesa_store_flush_duration_seconds",
			Help:    "Document store flush latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend"},
	)

	StoreDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mesa_store_degraded",
			Help: "1 when the last document store flush failed",
		},
	)

	// Audit

	AuditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mesa_audit_records_total",
			Help: "Total number of audit records written",
		},
		[]string{"status"},
	)

	// Auth

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mesa_logins_total",
			Help: "Total number of staff login attempts",
		},
		[]string{"endpoint", "status"},
	)

	// HTTP

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mesa_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mesa_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)
