// Package config loads service configuration from the environment.
//
// Every knob has a default that works for local development; production
// deployments override via environment variables. main calls Load once and
// passes sub-structs down, so packages never read the environment themselves.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the root configuration for the shahid server.
type Config struct {
	HTTP       HTTPConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	Moderation ModerationConfig
	RateLimit  RateLimitConfig
	Payments   PaymentsConfig

	// DemoMode runs everything on in-memory stores, no Postgres/Redis/Kafka
	// required. Useful for demos and handler-level smoke testing.
	DemoMode bool `env:"SHAHID_DEMO_MODE" envDefault:"false"`
}

// HTTPConfig captures HTTP server level configuration.
type HTTPConfig struct {
	Addr            string        `env:"SHAHID_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"SHAHID_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SHAHID_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHAHID_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// PostgresConfig configures the primary relational store.
type PostgresConfig struct {
	DSN          string        `env:"SHAHID_POSTGRES_DSN"`
	MaxConns     int32         `env:"SHAHID_POSTGRES_MAX_CONNS" envDefault:"16"`
	ConnLifetime time.Duration `env:"SHAHID_POSTGRES_CONN_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the Redis client used by rate limiting and the
// token revocation list.
type RedisConfig struct {
	URL          string        `env:"SHAHID_REDIS_URL"`
	PoolSize     int           `env:"SHAHID_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"SHAHID_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"SHAHID_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"SHAHID_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"SHAHID_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the audit outbox relay.
type KafkaConfig struct {
	Brokers       []string      `env:"SHAHID_KAFKA_BROKERS" envSeparator:","`
	AuditTopic    string        `env:"SHAHID_KAFKA_AUDIT_TOPIC" envDefault:"shahid.audit"`
	RelayInterval time.Duration `env:"SHAHID_KAFKA_RELAY_INTERVAL" envDefault:"2s"`
	RelayBatch    int           `env:"SHAHID_KAFKA_RELAY_BATCH" envDefault:"100"`
}

// AuthConfig configures token issuance and password policy.
type AuthConfig struct {
	JWTSigningKey string        `env:"SHAHID_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	TokenTTL      time.Duration `env:"SHAHID_TOKEN_TTL" envDefault:"1h"`
	BcryptCost    int           `env:"SHAHID_BCRYPT_COST" envDefault:"12"`
}

// ModerationConfig carries the content moderation thresholds.
type ModerationConfig struct {
	// TrustThreshold is the number of distinct trusting users (journalists,
	// politicians, admins) that flips a post to verified.
	TrustThreshold int `env:"SHAHID_TRUST_THRESHOLD" envDefault:"3"`
	// ReportEscalation is the report count at which an approved post drops
	// back to pending review.
	ReportEscalation int `env:"SHAHID_REPORT_ESCALATION" envDefault:"5"`
	// BlockedTerms seed the content screening matcher.
	BlockedTerms []string `env:"SHAHID_BLOCKED_TERMS" envSeparator:","`
}

// RateLimitConfig configures request limits and auth lockout.
type RateLimitConfig struct {
	Enabled bool `env:"SHAHID_RATELIMIT_ENABLED" envDefault:"true"`

	AuthPerMinute      int `env:"SHAHID_RATELIMIT_AUTH_PER_MIN" envDefault:"10"`
	SensitivePerMinute int `env:"SHAHID_RATELIMIT_SENSITIVE_PER_MIN" envDefault:"30"`
	ReadPerMinute      int `env:"SHAHID_RATELIMIT_READ_PER_MIN" envDefault:"100"`
	WritePerMinute     int `env:"SHAHID_RATELIMIT_WRITE_PER_MIN" envDefault:"50"`

	// Auth lockout: CaptchaAfter failures raise the captcha flag,
	// LockoutAfter failures lock the identifier for LockoutTTL.
	FailureWindow time.Duration `env:"SHAHID_LOCKOUT_WINDOW" envDefault:"1h"`
	CaptchaAfter  int           `env:"SHAHID_LOCKOUT_CAPTCHA_AFTER" envDefault:"5"`
	LockoutAfter  int           `env:"SHAHID_LOCKOUT_AFTER" envDefault:"10"`
	LockoutTTL    time.Duration `env:"SHAHID_LOCKOUT_TTL" envDefault:"15m"`
}

// PaymentsConfig carries gateway credentials. Empty keys disable the
// respective gateway.
type PaymentsConfig struct {
	StripeAPIBase       string `env:"SHAHID_STRIPE_API_BASE" envDefault:"https://api.stripe.com"`
	StripeSecretKey     string `env:"SHAHID_STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"SHAHID_STRIPE_WEBHOOK_SECRET"`

	PayPalAPIBase       string `env:"SHAHID_PAYPAL_API_BASE" envDefault:"https://api-m.paypal.com"`
	PayPalClientID      string `env:"SHAHID_PAYPAL_CLIENT_ID"`
	PayPalClientSecret  string `env:"SHAHID_PAYPAL_CLIENT_SECRET"`
	PayPalWebhookSecret string `env:"SHAHID_PAYPAL_WEBHOOK_SECRET"`

	DefaultGateway string `env:"SHAHID_DEFAULT_GATEWAY" envDefault:"stripe"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present (development convenience).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config from env: %w", err)
	}
	return cfg, nil
}
