package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports. A nil *Metrics is valid
// and records nothing, so tests can skip the registry.
type Metrics struct {
	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	gatewayCalls        *prometheus.CounterVec
	secretVerifications *prometheus.CounterVec
	settlementsTotal    *prometheus.CounterVec
	webhookEventsTotal  *prometheus.CounterVec
	secretIssuanceTotal *prometheus.CounterVec
	rateLimitedTotal    prometheus.Counter
	gatherer            prometheus.Gatherer
}

// New registers the collectors in reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "Payment gateway order creation attempts by stage and outcome.",
		}, []string{"stage", "outcome"}),
		secretVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secret_verifications_total",
			Help: "Secret verification outcomes by purpose.",
		}, []string{"purpose", "outcome"}),
		settlementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_settlements_total",
			Help: "Order settlement attempts by transition and outcome.",
		}, []string{"transition", "outcome"}),
		webhookEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Inbound gateway webhook deliveries by event and result.",
		}, []string{"event", "result"}),
		secretIssuanceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secret_issuance_total",
			Help: "Secrets issued by purpose and delivery result.",
		}, []string{"purpose", "result"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.gatewayCalls,
		m.secretVerifications,
		m.settlementsTotal,
		m.webhookEventsTotal,
		m.secretIssuanceTotal,
		m.rateLimitedTotal,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Instrument measures request rate, latency and in-flight count per chi route.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := routePattern(r)
		status := strconv.Itoa(sw.code)
		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// routePattern keeps label cardinality bounded by using the matched chi pattern.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func (m *Metrics) GatewayCall(stage, outcome string) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) SecretVerification(purpose, outcome string) {
	if m == nil {
		return
	}
	m.secretVerifications.WithLabelValues(purpose, outcome).Inc()
}

func (m *Metrics) Settlement(transition, outcome string) {
	if m == nil {
		return
	}
	m.settlementsTotal.WithLabelValues(transition, outcome).Inc()
}

func (m *Metrics) WebhookEvent(event, result string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.WithLabelValues(event, result).Inc()
}

func (m *Metrics) SecretIssued(purpose, result string) {
	if m == nil {
		return
	}
	m.secretIssuanceTotal.WithLabelValues(purpose, result).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

// statusWriter captures the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
