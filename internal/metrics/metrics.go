package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codeqr"

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests  *prometheus.CounterVec
	latencyMS *prometheus.HistogramVec

	cartSaveFailures  *prometheus.CounterVec
	ordersCreated     prometheus.Counter
	idempotentReplays prometheus.Counter
	qrActivations     prometheus.Counter
	outboxPublished   *prometheus.CounterVec
	outboxFailed      *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		latencyMS: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		cartSaveFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "save_failures_total",
			Help:      "Cart snapshots that could not be persisted.",
		}, []string{"store"}),
		ordersCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created by checkout.",
		}),
		idempotentReplays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "idempotent_replays_total",
			Help:      "Checkout requests answered from an earlier idempotency key.",
		}),
		qrActivations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qrcodes",
			Name:      "activations_total",
			Help:      "QR codes bound to a user.",
		}),
		outboxPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events delivered to the event sink.",
		}, []string{"event"}),
		outboxFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "failed_total",
			Help:      "Outbox events whose delivery failed and will be retried.",
		}, []string{"event"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latencyMS.WithLabelValues(route).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) CartSaveFailed(store string) {
	if m == nil {
		return
	}
	m.cartSaveFailures.WithLabelValues(store).Inc()
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) IdempotentReplay() {
	if m == nil {
		return
	}
	m.idempotentReplays.Inc()
}

func (m *Metrics) QRActivated() {
	if m == nil {
		return
	}
	m.qrActivations.Inc()
}

func (m *Metrics) OutboxPublished(event string) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues(event).Inc()
}

func (m *Metrics) OutboxFailed(event string) {
	if m == nil {
		return
	}
	m.outboxFailed.WithLabelValues(event).Inc()
}
