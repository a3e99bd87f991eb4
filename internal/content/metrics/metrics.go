package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the content module.
type Metrics struct {
	PostsCreated  *prometheus.CounterVec
	PostsVerified prometheus.Counter
	TrustToggles  prometheus.Counter
	ReportsFiled  *prometheus.CounterVec
	Escalations   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		PostsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_content_posts_created_total",
			Help: "Posts created by initial moderation status",
		}, []string{"status"}),
		PostsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_content_posts_verified_total",
			Help: "Posts that crossed the trust threshold",
		}),
		TrustToggles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_content_trust_toggles_total",
			Help: "Trust toggle operations",
		}),
		ReportsFiled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_content_reports_filed_total",
			Help: "Reports filed by reason",
		}, []string{"reason"}),
		Escalations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_content_report_escalations_total",
			Help: "Posts returned to review after crossing the report threshold",
		}),
	}
}
