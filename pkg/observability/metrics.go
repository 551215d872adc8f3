package observability

import (
	"bufio"
	"database/sql"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
// Every recording method is safe to call on a nil *Metrics, which disables recording.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthDecisionsTotal  *prometheus.CounterVec
	GroupDecisionsTotal *prometheus.CounterVec

	// Realtime metrics
	RealtimeConnections prometheus.Gauge
	RealtimeIdentities  prometheus.Gauge
	RealtimeHandshakes  *prometheus.CounterVec
	RealtimeEventsTotal *prometheus.CounterVec

	// Ephemeral store metrics
	CodeStoreOpsTotal *prometheus.CounterVec

	// Quest metrics
	QuestIncrementsTotal *prometheus.CounterVec

	// Notification metrics
	NotificationsCreated *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panelhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		AuthDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhub_auth_decisions_total",
				Help: "Authentication gate outcomes",
			},
			[]string{"gate", "outcome"},
		),
		GroupDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhub_group_decisions_total",
				Help: "Group scope and role gate outcomes",
			},
			[]string{"gate", "outcome"},
		),

		RealtimeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "panelhub_realtime_connections",
				Help: "Number of live realtime connections",
			},
		),
		RealtimeIdentities: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "panelhub_realtime_identities",
				Help: "Number of identities with at least one live connection",
			},
		),
		RealtimeHandshakes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhub_realtime_handshakes_total",
				Help: "Realtime handshake outcomes",
			},
			[]string{"outcome"},
		),
		RealtimeEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhub_realtime_events_total",
				Help: "Realtime events emitted, by outcome",
			},
			[]string{"event", "outcome"},
		),

		CodeStoreOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhub_code_store_operations_total",
				Help: "Ephemeral code store operations",
			},
			[]string{"backend", "operation", "result"},
		),

		QuestIncrementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhub_quest_increments_total",
				Help: "Quest progress increments, by outcome",
			},
			[]string{"category", "outcome"},
		),

		NotificationsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhub_notifications_created_total",
				Help: "Notifications persisted",
			},
			[]string{"category"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "panelhub_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "panelhub_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthDecisionsTotal,
		m.GroupDecisionsTotal,
		m.RealtimeConnections,
		m.RealtimeIdentities,
		m.RealtimeHandshakes,
		m.RealtimeEventsTotal,
		m.CodeStoreOpsTotal,
		m.QuestIncrementsTotal,
		m.NotificationsCreated,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// AuthDecision records an authentication gate outcome
func (m *Metrics) AuthDecision(gate, outcome string) {
	if m == nil {
		return
	}
	m.AuthDecisionsTotal.WithLabelValues(gate, outcome).Inc()
}

// GroupDecision records a group gate outcome
func (m *Metrics) GroupDecision(gate, outcome string) {
	if m == nil {
		return
	}
	m.GroupDecisionsTotal.WithLabelValues(gate, outcome).Inc()
}

// RealtimeHandshake records a handshake outcome
func (m *Metrics) RealtimeHandshake(outcome string) {
	if m == nil {
		return
	}
	m.RealtimeHandshakes.WithLabelValues(outcome).Inc()
}

// RealtimeEvent records an emit outcome
func (m *Metrics) RealtimeEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.RealtimeEventsTotal.WithLabelValues(event, outcome).Inc()
}

// SetRealtimeSize records the registry size
func (m *Metrics) SetRealtimeSize(connections, identities int) {
	if m == nil {
		return
	}
	m.RealtimeConnections.Set(float64(connections))
	m.RealtimeIdentities.Set(float64(identities))
}

// SetDBStats records the primary pool usage
func (m *Metrics) SetDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// CodeStoreOp records an ephemeral code store operation
func (m *Metrics) CodeStoreOp(backend, operation, result string) {
	if m == nil {
		return
	}
	m.CodeStoreOpsTotal.WithLabelValues(backend, operation, result).Inc()
}

// QuestIncrement records a progress increment outcome
func (m *Metrics) QuestIncrement(category, outcome string) {
	if m == nil {
		return
	}
	m.QuestIncrementsTotal.WithLabelValues(category, outcome).Inc()
}

// NotificationCreated records a persisted notification
func (m *Metrics) NotificationCreated(category string) {
	if m == nil {
		return
	}
	m.NotificationsCreated.WithLabelValues(category).Inc()
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *metricsResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests are labelled by their mux route template to keep cardinality bounded.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
