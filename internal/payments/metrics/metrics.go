// Package metrics exposes Prometheus counters for the payments module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Charges counts charge attempts by gateway and outcome
	// (completed, failed).
	Charges *prometheus.CounterVec
	// ChargedAmount accumulates completed charge amounts in minor units,
	// labelled by currency.
	ChargedAmount *prometheus.CounterVec
	// Refunds counts refunds by gateway.
	Refunds *prometheus.CounterVec
	// Subscriptions counts subscription lifecycle events by plan and action
	// (created, cancelled).
	Subscriptions *prometheus.CounterVec
	// Webhooks counts webhook deliveries by gateway and outcome
	// (processed, ignored, rejected).
	Webhooks *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Charges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_payments_charges_total",
			Help: "Charge attempts by gateway and outcome",
		}, []string{"gateway", "outcome"}),
		ChargedAmount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_payments_charged_amount_minor_units_total",
			Help: "Completed charge amounts in minor units by currency",
		}, []string{"currency"}),
		Refunds: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_payments_refunds_total",
			Help: "Refunds by gateway",
		}, []string{"gateway"}),
		Subscriptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_payments_subscriptions_total",
			Help: "Subscription lifecycle events by plan and action",
		}, []string{"plan", "action"}),
		Webhooks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_payments_webhooks_total",
			Help: "Webhook deliveries by gateway and outcome",
		}, []string{"gateway", "outcome"}),
	}
}
