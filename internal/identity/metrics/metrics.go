package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity module.
type Metrics struct {
	Registrations        prometheus.Counter
	LoginAttempts        *prometheus.CounterVec
	RoleChanges          *prometheus.CounterVec
	Bans                 prometheus.Counter
	AuthenticateDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_identity_registrations_total",
			Help: "Total number of accounts registered",
		}),
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_identity_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		RoleChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_identity_role_changes_total",
			Help: "Role changes by new role",
		}, []string{"role"}),
		Bans: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_identity_bans_total",
			Help: "Total number of user bans applied",
		}),
		AuthenticateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "shahid_identity_authenticate_duration_seconds",
			Help:    "Duration of Authenticate operations (bcrypt dominated)",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementLogin records a login attempt outcome (success, bad_credentials,
// banned, locked_out).
func (m *Metrics) IncrementLogin(outcome string) {
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveAuthenticate records the duration of an Authenticate call.
func (m *Metrics) ObserveAuthenticate(start time.Time) {
	m.AuthenticateDuration.Observe(time.Since(start).Seconds())
}
