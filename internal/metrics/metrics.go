// Package metrics exposes Prometheus counters for the ingestion pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IngestMetrics counts ingestion requests and their terminal outcomes.
//
// All observe methods are nil-safe so callers can hold a nil *IngestMetrics
// when metrics are disabled.
type IngestMetrics struct {
	registry       *prometheus.Registry
	requestsTotal  prometheus.Counter
	acceptedTotal  prometheus.Counter
	errorsTotal    *prometheus.CounterVec
	publishedTotal *prometheus.CounterVec
}

// NewIngestMetrics creates and registers the ingestion counters.
//
// A fresh Registry is created per instance; Handler serves it. Keeping the
// registry instance-scoped lets tests construct metrics without hitting the
// global default registry.
func NewIngestMetrics() *IngestMetrics {
	m := &IngestMetrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadgate",
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Total lead submissions received",
		}),
		acceptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadgate",
			Subsystem: "ingest",
			Name:      "accepted_total",
			Help:      "Total lead submissions accepted and published",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgate",
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Total failed lead submissions by reason",
		}, []string{"reason"}),
		publishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgate",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total events delivered by topic",
		}, []string{"topic"}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.acceptedTotal,
		m.errorsTotal,
		m.publishedTotal,
	)

	return m
}

// Handler returns the HTTP handler serving this instance's registry in the
// Prometheus exposition format.
func (m *IngestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest counts one incoming submission.
func (m *IngestMetrics) ObserveRequest() {
	if m == nil {
		return
	}

	m.requestsTotal.Inc()
}

// ObserveAccepted counts one fully accepted submission.
func (m *IngestMetrics) ObserveAccepted() {
	if m == nil {
		return
	}

	m.acceptedTotal.Inc()
}

// ObserveError counts one failed submission under the given reason.
func (m *IngestMetrics) ObserveError(reason string) {
	if m == nil {
		return
	}

	m.errorsTotal.WithLabelValues(reason).Inc()
}

// ObservePublished counts one delivered event on the given topic.
func (m *IngestMetrics) ObservePublished(topic string) {
	if m == nil {
		return
	}

	m.publishedTotal.WithLabelValues(topic).Inc()
}
