package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the health of the audit pipeline.
type Metrics struct {
	EventsEmitted  prometheus.Counter
	EventsDropped  prometheus.Counter
	RelayPublished prometheus.Counter
	RelayFailures  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		EventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_audit_events_emitted_total",
			Help: "Audit events accepted by the publisher.",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_audit_events_dropped_total",
			Help: "Audit events dropped because the inbox was full.",
		}),
		RelayPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_audit_relay_published_total",
			Help: "Outbox rows published to Kafka by the relay.",
		}),
		RelayFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_audit_relay_failures_total",
			Help: "Kafka publish failures in the outbox relay.",
		}),
	}
}
