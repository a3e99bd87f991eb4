// Package metrics exposes Prometheus counters for rate limiting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Checks counts rate limit decisions by endpoint class and outcome
	// (allowed, denied).
	Checks *prometheus.CounterVec
	// AuthFailures counts failed logins recorded for lockout tracking.
	AuthFailures prometheus.Counter
	// Lockouts counts hard lockouts triggered.
	Lockouts prometheus.Counter
	// CaptchaRequired counts identifiers that crossed the captcha threshold.
	CaptchaRequired prometheus.Counter
	// BannedRejections counts requests rejected by an IP ban.
	BannedRejections prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shahid_ratelimit_checks_total",
			Help: "Rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_ratelimit_auth_failures_total",
			Help: "Failed login attempts recorded for lockout tracking",
		}),
		Lockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_ratelimit_lockouts_total",
			Help: "Hard lockouts triggered by repeated auth failures",
		}),
		CaptchaRequired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_ratelimit_captcha_required_total",
			Help: "Identifiers that crossed the captcha threshold",
		}),
		BannedRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shahid_ratelimit_ip_ban_rejections_total",
			Help: "Requests rejected because the source IP is banned",
		}),
	}
}
