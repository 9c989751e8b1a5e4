// Package metrics holds the Prometheus collectors of the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mutari"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	guestRequests   *prometheus.CounterVec
	offerActions    *prometheus.CounterVec
	emails          *prometheus.CounterVec
	feedConnections prometheus.Gauge
	mediaRemoved    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		guestRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guest_requests_total",
			Help:      "Guest request submissions by outcome.",
		}, []string{"outcome"}),
		offerActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_actions_total",
			Help:      "Offer and request status actions by action and outcome.",
		}, []string{"action", "outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Notification emails by event and outcome.",
		}, []string{"event", "outcome"}),
		feedConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_connections",
			Help:      "Open live feed websocket connections.",
		}),
		mediaRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_objects_removed_total",
			Help:      "Media objects deleted from storage.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.guestRequests,
		m.offerActions,
		m.emails,
		m.feedConnections,
		m.mediaRemoved,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) GuestRequest(outcome string) {
	m.guestRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OfferAction(action, outcome string) {
	m.offerActions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) Email(event string, success bool) {
	m.emails.WithLabelValues(event, outcome(success)).Inc()
}

func (m *Metrics) FeedConnected()    { m.feedConnections.Inc() }
func (m *Metrics) FeedDisconnected() { m.feedConnections.Dec() }

func (m *Metrics) MediaRemoved(n int) {
	m.mediaRemoved.Add(float64(n))
}

func outcome(success bool) string {
	if success {
		return "ok"
	}
	return "error"
}
