package models

import (
	"time"

	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

// Plan is the subscription tier.
type Plan string

const (
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
	PlanPro     Plan = "pro"
)

// planPrices is the monthly price per plan in USD minor units.
var planPrices = map[Plan]int64{
	PlanBasic:   499,
	PlanPremium: 999,
	PlanPro:     1999,
}

// ParsePlan validates a plan name.
func ParsePlan(s string) (Plan, error) {
	if _, ok := planPrices[Plan(s)]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown subscription plan")
	}
	return Plan(s), nil
}

// Price returns the plan's monthly price in minor units.
func (p Plan) Price() int64 { return planPrices[p] }

// SubscriptionStatus is the subscription lifecycle state.
type SubscriptionStatus string

const (
	SubActive    SubscriptionStatus = "active"
	SubCancelled SubscriptionStatus = "cancelled"
	SubExpired   SubscriptionStatus = "expired"
	SubSuspended SubscriptionStatus = "suspended"
)

// Subscription is a user's recurring plan. One row per user; resubscribing
// reuses the row.
type Subscription struct {
	ID     id.SubscriptionID  `json:"id"`
	UserID id.UserID          `json:"user_id"`
	Plan   Plan               `json:"plan"`
	Status SubscriptionStatus `json:"status"`

	// MonthlyPrice is captured at subscription time so a price change does
	// not reprice existing subscribers.
	MonthlyPrice int64  `json:"monthly_price"`
	Currency     string `json:"currency"`

	Gateway     string `json:"gateway"`
	ProviderRef string `json:"provider_ref,omitempty"`

	StartedAt        time.Time  `json:"started_at"`
	CurrentPeriodEnd time.Time  `json:"current_period_end"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewSubscription validates and builds an active subscription.
func NewSubscription(subID id.SubscriptionID, userID id.UserID, plan Plan, gateway, providerRef string, now time.Time) (*Subscription, error) {
	if _, err := ParsePlan(string(plan)); err != nil {
		return nil, err
	}
	if gateway == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "gateway is required")
	}
	return &Subscription{
		ID:               subID,
		UserID:           userID,
		Plan:             plan,
		Status:           SubActive,
		MonthlyPrice:     plan.Price(),
		Currency:         "USD",
		Gateway:          gateway,
		ProviderRef:      providerRef,
		StartedAt:        now,
		CurrentPeriodEnd: now.AddDate(0, 1, 0),
		UpdatedAt:        now,
	}, nil
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive() bool {
	return s.Status == SubActive
}

// CanCancel guards cancellation.
func (s *Subscription) CanCancel() error {
	if s.Status != SubActive && s.Status != SubSuspended {
		return dErrors.New(dErrors.CodeConflict, "subscription is not active")
	}
	return nil
}

// ApplyCancellation cancels the subscription. Access runs to period end.
func (s *Subscription) ApplyCancellation(now time.Time) {
	s.Status = SubCancelled
	cancelled := now
	s.CancelledAt = &cancelled
	s.UpdatedAt = now
}

// CanReactivate guards resubscribing on an existing row.
func (s *Subscription) CanReactivate() error {
	if s.Status == SubActive {
		return dErrors.New(dErrors.CodeConflict, "subscription is already active")
	}
	return nil
}

// ApplyReactivation restarts the subscription on a plan.
func (s *Subscription) ApplyReactivation(plan Plan, providerRef string, now time.Time) {
	s.Plan = plan
	s.Status = SubActive
	s.MonthlyPrice = plan.Price()
	s.ProviderRef = providerRef
	s.StartedAt = now
	s.CurrentPeriodEnd = now.AddDate(0, 1, 0)
	s.CancelledAt = nil
	s.UpdatedAt = now
}

// ApplySuspension marks the subscription suspended (gateway reported a
// failed renewal).
func (s *Subscription) ApplySuspension(now time.Time) {
	s.Status = SubSuspended
	s.UpdatedAt = now
}

// ApplyExpiry marks the subscription expired after its final period ends.
func (s *Subscription) ApplyExpiry(now time.Time) {
	s.Status = SubExpired
	s.UpdatedAt = now
}

// ApplyRenewal extends the current period after a successful renewal charge.
func (s *Subscription) ApplyRenewal(periodEnd time.Time, now time.Time) {
	s.CurrentPeriodEnd = periodEnd
	s.UpdatedAt = now
}
