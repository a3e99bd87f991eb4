// Command server runs the shahid API: account identity, post moderation,
// role verification, the people/events directory, payments, rate limiting,
// and the audit pipeline. main only wires dependencies; behavior lives in
// the internal packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"shahid/internal/audit"
	auditrelay "shahid/internal/audit/relay"
	auditpg "shahid/internal/audit/store/postgres"
	contenthandler "shahid/internal/content/handler"
	contentmetrics "shahid/internal/content/metrics"
	contentmodels "shahid/internal/content/models"
	"shahid/internal/content/screening"
	contentservice "shahid/internal/content/service"
	"shahid/internal/content/store/comment"
	"shahid/internal/content/store/interaction"
	"shahid/internal/content/store/post"
	"shahid/internal/content/store/report"
	directoryhandler "shahid/internal/directory/handler"
	directorymetrics "shahid/internal/directory/metrics"
	directoryservice "shahid/internal/directory/service"
	"shahid/internal/directory/store/event"
	"shahid/internal/directory/store/person"
	httpapi "shahid/internal/http"
	identityhandler "shahid/internal/identity/handler"
	identitymetrics "shahid/internal/identity/metrics"
	identityservice "shahid/internal/identity/service"
	"shahid/internal/identity/store/user"
	"shahid/internal/identity/token"
	"shahid/internal/payments/gateway"
	paymentshandler "shahid/internal/payments/handler"
	paymentsmetrics "shahid/internal/payments/metrics"
	paymentsservice "shahid/internal/payments/service"
	"shahid/internal/payments/store/method"
	"shahid/internal/payments/store/subscription"
	"shahid/internal/payments/store/transaction"
	"shahid/internal/platform/config"
	"shahid/internal/platform/httpserver"
	"shahid/internal/platform/logger"
	platformmetrics "shahid/internal/platform/metrics"
	"shahid/internal/platform/postgres"
	platformredis "shahid/internal/platform/redis"
	ratelimithandler "shahid/internal/ratelimit/handler"
	ratelimitmetrics "shahid/internal/ratelimit/metrics"
	ratelimitmw "shahid/internal/ratelimit/middleware"
	ratelimitservice "shahid/internal/ratelimit/service"
	"shahid/internal/ratelimit/store/bucket"
	"shahid/internal/ratelimit/store/ipban"
	"shahid/internal/ratelimit/store/lockout"
	"shahid/internal/search"
	verificationhandler "shahid/internal/verification/handler"
	verificationmetrics "shahid/internal/verification/metrics"
	verificationservice "shahid/internal/verification/service"
	"shahid/internal/verification/store/request"
)

func main() {
	log := logger.New()
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db  *postgres.DB
		rdb *platformredis.Client
		err error
	)
	if !cfg.DemoMode {
		db, err = postgres.Connect(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()

		rdb, err = platformredis.New(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		if rdb != nil {
			defer rdb.Close()
		}
	}
	if cfg.DemoMode {
		log.Warn("demo mode: in-memory stores, rate limiting disabled")
	}

	pm := platformmetrics.New()
	auditMetrics := audit.NewMetrics()

	// Audit pipeline: services emit, the worker persists, the relay ships
	// outbox rows to Kafka when brokers are configured.
	var auditStore audit.Store
	if db != nil {
		auditStore = auditpg.New(db.SQL)
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	publisher := audit.NewPublisher(256, log, auditMetrics)
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log)

	// Rate limiting. Buckets and lockouts live in Redis when available so
	// limits hold across instances.
	var (
		buckets  ratelimitservice.BucketStore
		lockouts ratelimitservice.LockoutStore
		bans     ratelimitservice.BanStore
	)
	if rdb != nil {
		buckets = bucket.NewRedisStore(rdb.Client)
		lockouts = lockout.NewRedisStore(rdb.Client)
	} else {
		buckets = bucket.NewMemoryStore()
		lockouts = lockout.NewMemoryStore()
	}
	if db != nil {
		bans = ipban.NewPostgresStore(db.Pool)
	} else {
		bans = ipban.NewMemoryStore()
	}
	limiter := ratelimitservice.New(buckets, lockouts, bans, cfg.RateLimit,
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithAuditPublisher(publisher),
		ratelimitservice.WithMetrics(ratelimitmetrics.New()),
	)
	rlmw := ratelimitmw.New(limiter,
		ratelimitmw.WithLogger(log),
		ratelimitmw.WithDisabled(cfg.DemoMode || !cfg.RateLimit.Enabled),
	)

	// Identity.
	var revocations token.RevocationList
	if rdb != nil {
		revocations = token.NewRedisRevocationList(rdb.Client)
	} else {
		revocations = token.NewMemoryRevocationList()
	}
	tokens := token.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.TokenTTL, revocations)

	var users identityservice.UserStore
	if db != nil {
		users = user.NewPostgresStore(db.Pool)
	} else {
		users = user.NewMemoryStore()
	}
	identitySvc := identityservice.New(users, tokens,
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(publisher),
		identityservice.WithLockoutGuard(limiter),
		identityservice.WithMetrics(identitymetrics.New()),
		identityservice.WithBcryptCost(cfg.Auth.BcryptCost),
	)

	// Search. The index is rebuilt from the post store on boot, so it stays
	// in memory rather than on disk.
	index, err := search.New("", log)
	if err != nil {
		return err
	}
	defer index.Close()

	// Content.
	screener, err := screening.New(cfg.Moderation.BlockedTerms)
	if err != nil {
		return fmt.Errorf("build content screener: %w", err)
	}
	var (
		posts        contentservice.PostStore
		interactions contentservice.InteractionStore
		reports      contentservice.ReportStore
		comments     contentservice.CommentStore
	)
	if db != nil {
		posts = post.NewPostgresStore(db.Pool)
		interactions = interaction.NewPostgresStore(db.Pool)
		reports = report.NewPostgresStore(db.Pool)
		comments = comment.NewPostgresStore(db.Pool)
	} else {
		posts = post.NewMemoryStore()
		interactions = interaction.NewMemoryStore()
		reports = report.NewMemoryStore()
		comments = comment.NewMemoryStore()
	}
	contentSvc := contentservice.New(posts, interactions, reports, comments, identitySvc,
		contentservice.WithLogger(log),
		contentservice.WithAuditPublisher(publisher),
		contentservice.WithScreener(screener),
		contentservice.WithSearchIndex(index),
		contentservice.WithMetrics(contentmetrics.New()),
		contentservice.WithThresholds(cfg.Moderation.TrustThreshold, cfg.Moderation.ReportEscalation),
	)
	if err := rebuildSearchIndex(ctx, posts, index); err != nil {
		return err
	}

	// Verification.
	var requests verificationservice.RequestStore
	if db != nil {
		requests = request.NewPostgresStore(db.Pool)
	} else {
		requests = request.NewMemoryStore()
	}
	verificationSvc := verificationservice.New(requests, users,
		verificationservice.WithLogger(log),
		verificationservice.WithAuditPublisher(publisher),
		verificationservice.WithMetrics(verificationmetrics.New()),
	)

	// Directory.
	var (
		people directoryservice.PersonStore
		events directoryservice.EventStore
	)
	if db != nil {
		people = person.NewPostgresStore(db.Pool)
		events = event.NewPostgresStore(db.Pool)
	} else {
		people = person.NewMemoryStore()
		events = event.NewMemoryStore()
	}
	directorySvc := directoryservice.New(people, events, identitySvc,
		directoryservice.WithLogger(log),
		directoryservice.WithAuditPublisher(publisher),
		directoryservice.WithMetrics(directorymetrics.New()),
	)

	// Payments.
	var (
		methods       paymentsservice.MethodStore
		transactions  paymentsservice.TransactionStore
		subscriptions paymentsservice.SubscriptionStore
	)
	if db != nil {
		methods = method.NewPostgresStore(db.Pool)
		transactions = transaction.NewPostgresStore(db.Pool)
		subscriptions = subscription.NewPostgresStore(db.Pool)
	} else {
		methods = method.NewMemoryStore()
		transactions = transaction.NewMemoryStore()
		subscriptions = subscription.NewMemoryStore()
	}
	gateways, secrets := buildGateways(cfg.Payments, log)
	paymentsSvc := paymentsservice.New(methods, transactions, subscriptions, gateways, cfg.Payments.DefaultGateway,
		paymentsservice.WithLogger(log),
		paymentsservice.WithAuditPublisher(publisher),
		paymentsservice.WithMetrics(paymentsmetrics.New()),
	)

	// Router and server.
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Metrics:        pm,
		TokenValidator: tokens,
		RateLimit:      rlmw,
		Identity:       identityhandler.New(identitySvc, log),
		Content:        contenthandler.New(contentSvc, log),
		Verification:   verificationhandler.New(verificationSvc, log),
		Directory:      directoryhandler.New(directorySvc, log),
		Payments:       paymentshandler.New(paymentsSvc, secrets, log),
		Search:         search.NewHandler(index),
		RateLimitOps:   ratelimithandler.New(limiter, log),
		Audit:          audit.NewHandler(auditStore, log),
		Health:         healthChecks(db, rdb),
		RequestTimeout: cfg.HTTP.WriteTimeout,
	})
	srv := httpserver.New(cfg.HTTP, router)

	// Outbox relay, only with Postgres and Kafka configured.
	var relay *auditrelay.Relay
	if db != nil {
		relay, err = auditrelay.New(ctx, db.SQL, cfg.Kafka, log, auditMetrics)
		if err != nil {
			return fmt.Errorf("start audit relay: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	if relay != nil {
		g.Go(func() error { return relay.Run(ctx) })
	}
	g.Go(func() error {
		log.Info("listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildGateways constructs the configured payment gateways and collects
// their webhook secrets. A missing credential disables that gateway rather
// than failing boot.
func buildGateways(cfg config.PaymentsConfig, log *slog.Logger) (map[string]gateway.Gateway, paymentshandler.WebhookSecrets) {
	client := &http.Client{Timeout: 30 * time.Second}
	gateways := make(map[string]gateway.Gateway)
	secrets := make(paymentshandler.WebhookSecrets)

	for _, name := range []string{"stripe", "paypal"} {
		gw, err := gateway.New(name, cfg, client)
		if err != nil {
			log.Warn("payment gateway disabled", "gateway", name, "reason", err)
			continue
		}
		gateways[name] = gw
	}
	if cfg.StripeWebhookSecret != "" {
		secrets["stripe"] = cfg.StripeWebhookSecret
	}
	if cfg.PayPalWebhookSecret != "" {
		secrets["paypal"] = cfg.PayPalWebhookSecret
	}
	return gateways, secrets
}

// rebuildSearchIndex loads every approved post into the search index. The
// stores cap a single page, so it keeps fetching until a short page signals
// the end.
func rebuildSearchIndex(ctx context.Context, posts contentservice.PostStore, index *search.Index) error {
	const pageSize = 50
	approved := contentmodels.StatusApproved
	for offset := 0; ; offset += pageSize {
		page, err := posts.List(ctx, post.ListFilter{Status: &approved, Limit: pageSize, Offset: offset})
		if err != nil {
			return fmt.Errorf("load posts for search index: %w", err)
		}
		if err := index.Rebuild(page); err != nil {
			return fmt.Errorf("rebuild search index: %w", err)
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

func healthChecks(db *postgres.DB, rdb *platformredis.Client) map[string]httpapi.HealthChecker {
	checks := make(map[string]httpapi.HealthChecker)
	if db != nil {
		checks["postgres"] = db
	}
	if rdb != nil {
		checks["redis"] = rdb
	}
	return checks
}
