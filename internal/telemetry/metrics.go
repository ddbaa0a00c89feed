package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the companion's prometheus instruments on a private
// registry. It doubles as the Telemetry sink for counting events and as the
// PublisherMetrics surface for the NATS publisher.
type Collector struct {
	reg *prometheus.Registry

	Events      *prometheus.CounterVec // type label
	Errors      *prometheus.CounterVec // operation label
	ProxyCalls  *prometheus.CounterVec // agency, outcome labels
	QueueDepth  prometheus.Gauge
	QueueReplay prometheus.Counter

	FetchDuration prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

// NewCollector builds and registers all instruments.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_telemetry_events_total",
			Help: "Telemetry events recorded, by event type.",
		}, []string{"type"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_errors_total",
			Help: "Terminal errors reported after retry exhaustion, by operation.",
		}, []string{"operation"}),
		ProxyCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_proxy_calls_total",
			Help: "Agency proxy invocations, by agency and outcome.",
		}, []string{"agency", "outcome"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "companion_offline_queue_depth",
			Help: "Reports currently held in the offline queue.",
		}),
		QueueReplay: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "companion_offline_queue_replayed_total",
			Help: "Queued reports delivered during replay.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "companion_arrivals_fetch_seconds",
			Help:    "End-to-end arrivals fetch duration.",
			Buckets: prometheus.DefBuckets,
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "companion_nats_published_total",
			Help: "Telemetry events published to NATS.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "companion_nats_publish_errors_total",
			Help: "Telemetry publish failures.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "companion_nats_connected",
			Help: "Whether the NATS connection is up (1) or down (0).",
		}),
	}

	reg.MustRegister(
		c.Events, c.Errors, c.ProxyCalls,
		c.QueueDepth, c.QueueReplay, c.FetchDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)
	return c
}

// Handler serves the registry for GET /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Telemetry implementation.

func (c *Collector) RecordEvent(eventType string, payload map[string]any) {
	c.Events.WithLabelValues(eventType).Inc()
	if agency, ok := payload["agency"].(string); ok {
		outcome := "success"
		if succeeded, present := payload["success"].(bool); present && !succeeded {
			outcome = "failure"
		}
		c.ProxyCalls.WithLabelValues(agency, outcome).Inc()
	}
}

func (c *Collector) RecordError(operation string, _ error) {
	c.Errors.WithLabelValues(operation).Inc()
}

// PublisherMetrics implementation.

func (c *Collector) TelemetryPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) TelemetryPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
