// Package metrics exposes Prometheus counters for the directory module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PeopleCreated *prometheus.CounterVec
	EventsCreated *prometheus.CounterVec
	Approvals     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		PeopleCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_directory_people_created_total",
			Help: "Directory people created by initial status.",
		}, []string{"status"}),
		EventsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_directory_events_created_total",
			Help: "Directory events created by initial status.",
		}, []string{"status"}),
		Approvals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_directory_approvals_total",
			Help: "Directory entries approved by kind.",
		}, []string{"kind"}),
	}
}
