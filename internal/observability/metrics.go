package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the platform.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authzDenials    *prometheus.CounterVec
	wsConnections   prometheus.Gauge
	wsEvents        *prometheus.CounterVec
}

// NewMetrics initializes the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flutterbye_http_requests_total",
		Help: "HTTP request count by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flutterbye_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flutterbye_authz_denials_total",
		Help: "Authorization gate denials by reason.",
	}, []string{"reason"})
	wsConns := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flutterbye_ws_connections",
		Help: "Currently open websocket connections.",
	})
	wsEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flutterbye_ws_events_total",
		Help: "Websocket events by type and outcome.",
	}, []string{"type", "outcome"})
	registry.MustRegister(requests, duration, denials, wsConns, wsEvents)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		authzDenials:    denials,
		wsConnections:   wsConns,
		wsEvents:        wsEvents,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// AuthzDenied counts one gate denial.
func (m *Metrics) AuthzDenied(reason string) {
	if m == nil {
		return
	}
	m.authzDenials.WithLabelValues(reason).Inc()
}

// WSConnectionOpened tracks a websocket connection entering the open state.
func (m *Metrics) WSConnectionOpened() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

// WSConnectionClosed tracks a websocket connection leaving the open state.
func (m *Metrics) WSConnectionClosed() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

// WSEvent counts one processed websocket event.
func (m *Metrics) WSEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.wsEvents.WithLabelValues(eventType, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
