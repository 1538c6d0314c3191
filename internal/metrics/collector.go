// Package metrics implements the Prometheus collector exposed at /metrics:
// per-operation counters and latency histograms, an active-session gauge,
// and an allocated-blocks gauge.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the Prometheus registry and every metric the server
// updates as requests are processed.
type Collector struct {
	registry *prometheus.Registry

	operationTotal    *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeSessions    prometheus.Gauge
	allocatedBlocks   prometheus.Gauge
	queueDepth        prometheus.Gauge
}

// NewCollector creates and registers every metric under namespace omnifs.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		operationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnifs",
			Name:      "operations_total",
			Help:      "Total number of engine operations processed, by operation and status.",
		}, []string{"operation", "status"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "omnifs",
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing an engine operation on the processor goroutine.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"operation"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "omnifs",
			Name:      "active_sessions",
			Help:      "Number of currently active login sessions.",
		}),
		allocatedBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "omnifs",
			Name:      "allocated_blocks",
			Help:      "Number of container blocks currently allocated, metadata reservation included.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "omnifs",
			Name:      "request_queue_depth",
			Help:      "Number of requests currently waiting in the FIFO request queue.",
		}),
	}

	registry.MustRegister(c.operationTotal, c.operationDuration, c.activeSessions, c.allocatedBlocks, c.queueDepth)

	return c
}

// RecordOperation records one dispatched wire operation's outcome and
// latency.
func (c *Collector) RecordOperation(operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.operationTotal.WithLabelValues(operation, status).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetActiveSessions updates the active-session gauge.
func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// SetAllocatedBlocks updates the allocated-blocks gauge.
func (c *Collector) SetAllocatedBlocks(n int) {
	c.allocatedBlocks.Set(float64(n))
}

// SetQueueDepth updates the request-queue-depth gauge.
func (c *Collector) SetQueueDepth(n int) {
	c.queueDepth.Set(float64(n))
}

// Handler returns the HTTP handler to mount at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
