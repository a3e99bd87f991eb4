// Package models holds the rate limiting domain types: endpoint classes,
// check results, auth failure records, and IP bans.
package models

import (
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassAuth covers login and registration.
	ClassAuth EndpointClass = "auth"
	// ClassSensitive covers payments and verification submissions.
	ClassSensitive EndpointClass = "sensitive"
	// ClassRead covers public reads.
	ClassRead EndpointClass = "read"
	// ClassWrite covers general mutations.
	ClassWrite EndpointClass = "write"
)

// IsValid checks if the endpoint class is one of the supported values.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassAuth, ClassSensitive, ClassRead, ClassWrite:
		return true
	}
	return false
}

// RateLimitResult is the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// RetryAfter is in seconds, set only when not allowed.
	RetryAfter int `json:"retry_after,omitempty"`
}

// AuthCheckResult extends RateLimitResult with lockout state for auth
// endpoints.
type AuthCheckResult struct {
	RateLimitResult
	RequiresCaptcha bool `json:"requires_captcha"`
	FailureCount    int  `json:"failure_count"`
}

// FailureRecord tracks failed login attempts for one identifier within the
// sliding window.
type FailureRecord struct {
	FailureCount    int        `json:"failure_count"`
	FirstFailureAt  time.Time  `json:"first_failure_at"`
	LastFailureAt   time.Time  `json:"last_failure_at"`
	RequiresCaptcha bool       `json:"requires_captcha"`
	LockedUntil     *time.Time `json:"locked_until,omitempty"`
}

// IsLockedAt reports whether the identifier is hard-locked at the given time.
func (r *FailureRecord) IsLockedAt(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// WindowExpired reports whether the failure window has passed and the record
// should start over.
func (r *FailureRecord) WindowExpired(now time.Time, window time.Duration) bool {
	return r.FailureCount > 0 && now.Sub(r.FirstFailureAt) > window
}

// RecordFailure adds one failure, restarting the window when it has expired.
func (r *FailureRecord) RecordFailure(now time.Time, window time.Duration) {
	if r.WindowExpired(now, window) {
		r.FailureCount = 0
		r.RequiresCaptcha = false
		r.LockedUntil = nil
	}
	if r.FailureCount == 0 {
		r.FirstFailureAt = now
	}
	r.FailureCount++
	r.LastFailureAt = now
}

// ApplyLock hard-locks the identifier.
func (r *FailureRecord) ApplyLock(ttl time.Duration, now time.Time) {
	until := now.Add(ttl)
	r.LockedUntil = &until
}

// IPBan blocks all requests from an address. Bans are admin-placed and stay
// until lifted.
type IPBan struct {
	IP        string    `json:"ip"`
	Reason    string    `json:"reason"`
	BannedBy  id.UserID `json:"banned_by"`
	CreatedAt time.Time `json:"created_at"`
}

func NewIPBan(ip, reason string, bannedBy id.UserID, now time.Time) (*IPBan, error) {
	if ip == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ip address is required")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ban reason is required")
	}
	return &IPBan{IP: ip, Reason: reason, BannedBy: bannedBy, CreatedAt: now}, nil
}
