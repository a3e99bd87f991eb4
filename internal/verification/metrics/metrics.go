// Package metrics exposes Prometheus counters for the verification module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submitted prometheus.Counter
	Decisions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_verification_requests_submitted_total",
			Help: "Role verification requests submitted.",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_verification_decisions_total",
			Help: "Verification request decisions by outcome.",
		}, []string{"outcome"}),
	}
}
