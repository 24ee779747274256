package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the process registry and the ingest/HTTP instruments.
// A dedicated registry keeps the default one (and its go_* collectors
// duplicated under test) out of the picture.
type Collector struct {
	registry *prometheus.Registry

	EventsReceived  prometheus.Counter
	EventsStored    prometheus.Counter
	EventsSkipped   *prometheus.CounterVec
	EventsDuplicate prometheus.Counter
	PublishFailures prometheus.Counter

	HTTPRequests *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{registry: reg}

	c.EventsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "societywatch_events_received_total",
		Help: "Raw webhook event records received",
	})
	reg.MustRegister(c.EventsReceived)

	c.EventsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "societywatch_events_stored_total",
		Help: "Normalized events newly stored",
	})
	reg.MustRegister(c.EventsStored)

	c.EventsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "societywatch_events_skipped_total",
		Help: "Records dropped during normalization",
	}, []string{"reason"})
	reg.MustRegister(c.EventsSkipped)

	c.EventsDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "societywatch_events_duplicate_total",
		Help: "Inserts suppressed by uid idempotency or the pre-store cache",
	})
	reg.MustRegister(c.EventsDuplicate)

	c.PublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "societywatch_publish_failures_total",
		Help: "Fan-out publishes that exhausted retries",
	})
	reg.MustRegister(c.PublishFailures)

	c.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "societywatch_http_requests_total",
		Help: "HTTP requests by method and status",
	}, []string{"method", "status"})
	reg.MustRegister(c.HTTPRequests)

	return c
}

// Handler serves the registry for /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
