// Package metrics exports pool activity to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/world-in-progress/surfpool/pool"
)

const namespace = "surfpool"

// PrometheusMetrics implements pool.Metrics.
//
// Metrics exposed (all namespaced with "surfpool_"):
//
//   - handlers_in_use (gauge): handlers currently borrowed.
//   - handler_wait_seconds (histogram): time spent waiting in GetHandler.
//   - probes_total (counter, label result=healthy|unhealthy): health checks sent.
//   - probe_latency_seconds (histogram): health check round trip.
//
// Expose via HTTP for Prometheus scraping:
//
//	registry := prometheus.NewRegistry()
//	m := metrics.NewPrometheusMetrics(registry, "api")
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	inUse        prometheus.Gauge
	wait         prometheus.Histogram
	probes       *prometheus.CounterVec
	probeLatency prometheus.Histogram
}

// NewPrometheusMetrics registers the pool metrics with registry, labelled with
// the pool name. A nil registry means prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer, poolName string) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)
	labels := prometheus.Labels{"pool": poolName}

	return &PrometheusMetrics{
		inUse: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "handlers_in_use",
			Help:        "Number of handlers currently borrowed from the pool",
			ConstLabels: labels,
		}),
		wait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "handler_wait_seconds",
			Help:        "Time spent waiting for a free handler",
			ConstLabels: labels,
			Buckets:     []float64{.0001, .001, .01, .05, .1, .5, 1, 5},
		}),
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "probes_total",
			Help:        "Health checks sent through pool clients",
			ConstLabels: labels,
		}, []string{"result"}),
		probeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "probe_latency_seconds",
			Help:        "Health check round trip time",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
}

func (m *PrometheusMetrics) HandlerAcquired(wait time.Duration) {
	m.inUse.Inc()
	m.wait.Observe(wait.Seconds())
}

func (m *PrometheusMetrics) HandlerReleased() {
	m.inUse.Dec()
}

func (m *PrometheusMetrics) ProbeObserved(probe pool.Probe) {
	result := "healthy"
	if !probe.Healthy() {
		result = "unhealthy"
	}
	m.probes.WithLabelValues(result).Inc()
	m.probeLatency.Observe(probe.Latency.Seconds())
}

var _ pool.Metrics = (*PrometheusMetrics)(nil)
