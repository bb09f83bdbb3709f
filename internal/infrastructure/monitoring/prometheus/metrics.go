// Package prometheus exposes the learning core's operational metrics: which
// strategies get picked, how much cost they avoid, how the chunk cache
// behaves, and how the external capability performs.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

const namespace = "yakgwan"

// Metrics implements the learning engine's Observer plus intake-side
// counters for the worker.
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal   *prometheus.CounterVec
	costSavingsRatio prometheus.Histogram
	cacheLookups     *prometheus.CounterVec
	externalCalls    *prometheus.CounterVec
	externalLatency  *prometheus.HistogramVec
	documentsTotal   *prometheus.CounterVec
	documentLatency  prometheus.Histogram
}

// NewMetrics builds and registers the metric set on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "learning_decisions_total",
		Help:      "Learning decisions by strategy and whether a fallback occurred.",
	}, []string{"strategy", "fallback"})

	m.costSavingsRatio = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "learning_cost_saving_ratio",
		Help:      "Realized cost-saving fraction per learned document.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunk_cache_lookups_total",
		Help:      "Chunk cache lookups by result.",
	}, []string{"result"})

	m.externalCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "external_calls_total",
		Help:      "External extraction calls by backend and result.",
	}, []string{"backend", "result"})

	m.externalLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "external_call_duration_seconds",
		Help:      "External extraction call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend"})

	m.documentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_total",
		Help:      "Documents processed by outcome.",
	}, []string{"outcome"})

	m.documentLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "document_duration_seconds",
		Help:      "End-to-end document processing latency.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	m.registry.MustRegister(
		m.decisionsTotal, m.costSavingsRatio, m.cacheLookups,
		m.externalCalls, m.externalLatency,
		m.documentsTotal, m.documentLatency,
	)
	return m
}

// DecisionMade records one strategy decision.
func (m *Metrics) DecisionMade(strategy policy.Strategy, fallback bool, saving float64) {
	m.decisionsTotal.WithLabelValues(string(strategy), boolLabel(fallback)).Inc()
	m.costSavingsRatio.Observe(saving)
}

// CacheLookup records one chunk cache probe.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ExternalCall records one external extraction attempt.
func (m *Metrics) ExternalCall(backend string, success bool, elapsed time.Duration) {
	result := "error"
	if success {
		result = "success"
	}
	m.externalCalls.WithLabelValues(backend, result).Inc()
	m.externalLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// DocumentProcessed records one end-to-end document outcome.
func (m *Metrics) DocumentProcessed(success bool, elapsed time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.documentsTotal.WithLabelValues(outcome).Inc()
	m.documentLatency.Observe(elapsed.Seconds())
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
