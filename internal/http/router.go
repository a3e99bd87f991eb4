// Package httpapi assembles the HTTP surface: shared middleware, the public
// and authenticated route groups, and the admin subtree. Handlers stay thin;
// this package only decides who may reach them and at what rate.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shahid/internal/audit"
	contenthandler "shahid/internal/content/handler"
	directoryhandler "shahid/internal/directory/handler"
	identityhandler "shahid/internal/identity/handler"
	paymentshandler "shahid/internal/payments/handler"
	"shahid/internal/platform/middleware"
	platformmetrics "shahid/internal/platform/metrics"
	ratelimithandler "shahid/internal/ratelimit/handler"
	ratelimitmw "shahid/internal/ratelimit/middleware"
	"shahid/internal/ratelimit/models"
	"shahid/internal/search"
	verificationhandler "shahid/internal/verification/handler"
	"shahid/pkg/platform/httputil"
)

// HealthChecker reports readiness of a backing resource.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Logger  *slog.Logger
	Metrics *platformmetrics.Metrics

	TokenValidator middleware.JWTValidator
	RateLimit      *ratelimitmw.Middleware

	Identity     *identityhandler.Handler
	Content      *contenthandler.Handler
	Verification *verificationhandler.Handler
	Directory    *directoryhandler.Handler
	Payments     *paymentshandler.Handler
	Search       *search.Handler
	RateLimitOps *ratelimithandler.Handler
	Audit        *audit.Handler

	// Health checks by resource name. Nil-valued entries are skipped so demo
	// mode can pass the same map with unconfigured backends.
	Health map[string]HealthChecker

	RequestTimeout time.Duration
}

// NewRouter wires the full route tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger, d.Metrics))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Metadata)
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/healthz", healthHandler(d.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public surface.
	r.Group(func(r chi.Router) {
		r.Use(d.RateLimit.RejectBanned)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(d.RateLimit.Limit(models.ClassAuth))
			d.Identity.RegisterPublic(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.RateLimit.Limit(models.ClassRead))
			d.Content.RegisterPublic(r)
			d.Directory.RegisterPublic(r)
			d.Search.Register(r)
		})

		// Webhooks verify their own signatures over the raw body, so the
		// JSON content-type gate stays off this group.
		r.Group(func(r chi.Router) {
			r.Use(d.RateLimit.Limit(models.ClassSensitive))
			d.Payments.RegisterPublic(r)
		})
	})

	// Authenticated surface.
	r.Group(func(r chi.Router) {
		r.Use(d.RateLimit.RejectBanned)
		r.Use(middleware.RequireAuth(d.TokenValidator, d.Logger))

		// Identity self-service takes multipart document uploads, so the
		// JSON gate is scoped to the other write groups.
		r.Group(func(r chi.Router) {
			r.Use(d.RateLimit.Limit(models.ClassWrite))
			d.Identity.RegisterProtected(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(d.RateLimit.Limit(models.ClassWrite))
			d.Content.RegisterProtected(r)
			d.Directory.RegisterProtected(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(d.RateLimit.Limit(models.ClassSensitive))
			d.Verification.RegisterProtected(r)
			d.Payments.RegisterProtected(r)
		})
	})

	// Admin surface.
	r.Route("/admin", func(r chi.Router) {
		r.Use(d.RateLimit.RejectBanned)
		r.Use(middleware.RequireAuth(d.TokenValidator, d.Logger))
		r.Use(middleware.RequireAdmin(d.Logger))
		r.Use(middleware.ContentTypeJSON)
		r.Use(d.RateLimit.Limit(models.ClassSensitive))

		d.Identity.RegisterAdmin(r)
		d.Content.RegisterAdmin(r)
		d.Verification.RegisterAdmin(r)
		d.Directory.RegisterAdmin(r)
		d.RateLimitOps.RegisterAdmin(r)
		d.Audit.RegisterAdmin(r)
	})

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		healthy := true
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(r.Context()); err != nil {
				status[name] = err.Error()
				healthy = false
			} else {
				status[name] = "ok"
			}
		}
		code := http.StatusOK
		if !healthy {
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, status)
	}
}
