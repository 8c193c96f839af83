// Package metrics exposes Prometheus instruments for the client. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "socialhub"

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	CacheLookups       *prometheus.CounterVec
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RefreshesTotal     *prometheus.CounterVec
	RevalidationsTotal *prometheus.CounterVec
	RevalidationQueue  prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Resource cache reads by family and result",
			},
			[]string{"family", "result"}, // result=hit/miss/shared/error
		),
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Requests sent to the API",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RefreshesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Access token refresh attempts",
			},
			[]string{"result"}, // result=success/failure
		),
		RevalidationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revalidations_total",
				Help:      "Background revalidation jobs by outcome",
			},
			[]string{"job", "result"},
		),
		RevalidationQueue: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "revalidation_queue_depth",
				Help:      "Revalidation jobs waiting for a worker",
			},
		),
	}
}

// CacheLookup counts a cache read.
func (m *Metrics) CacheLookup(family, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(family, result).Inc()
}

// ObserveRequest records an API round trip. Status 0 means no response.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(method, label).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RefreshResult counts a token refresh outcome.
func (m *Metrics) RefreshResult(result string) {
	if m == nil {
		return
	}
	m.RefreshesTotal.WithLabelValues(result).Inc()
}

// Revalidated counts a finished background job.
func (m *Metrics) Revalidated(job, result string) {
	if m == nil {
		return
	}
	m.RevalidationsTotal.WithLabelValues(job, result).Inc()
}

// QueueDepth adjusts the pending job gauge by delta.
func (m *Metrics) QueueDepth(delta int) {
	if m == nil {
		return
	}
	m.RevalidationQueue.Add(float64(delta))
}
