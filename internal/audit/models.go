// Package audit provides the append-only trail for admin, moderation, and
// security actions. Domain services emit events through the Publisher; a
// background worker persists them; the relay ships persisted events to Kafka.
package audit

import (
	"context"
	"time"

	id "shahid/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. Categories
// drive retention and downstream routing.
type EventCategory string

const (
	// CategoryModeration covers admin actions on users and content. These are
	// the platform's accountability record and keep long retention.
	CategoryModeration EventCategory = "moderation"

	// CategorySecurity covers events relevant to security monitoring:
	// auth failures, lockouts, rate limit violations, IP bans.
	CategorySecurity EventCategory = "security"

	// CategoryPayments covers payment lifecycle events.
	CategoryPayments EventCategory = "payments"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// ActorID is the user who performed the action (admin for moderation
	// events, the user themselves for self-service events).
	ActorID id.UserID
	// TargetUserID is set when the action concerns another account.
	TargetUserID id.UserID
	// TargetPostID is set when the action concerns a post.
	TargetPostID id.PostID
	Action       Action
	Reason       string
	RequestID    string
	IP           string
	Metadata     map[string]string
}

// Action names the auditable actions. The moderation set mirrors the admin
// operations; security and payment sets come from the respective services.
type Action string

const (
	// Moderation actions
	ActionRoleChange          Action = "role_change"
	ActionPostStatus          Action = "post_status"
	ActionPostDeleted         Action = "post_deleted"
	ActionReportHandled       Action = "report_handled"
	ActionVerificationHandled Action = "verification_handled"
	ActionUserBanned          Action = "user_banned"
	ActionUserUnbanned        Action = "user_unbanned"
	ActionUserDeleted         Action = "user_deleted"
	ActionIdentityConfirmed   Action = "identity_confirmed"
	ActionPersonDeleted       Action = "person_deleted"
	ActionPersonStatusChange  Action = "person_status_change"
	ActionPersonRoleChange    Action = "person_role_change"
	ActionEventStatusChange   Action = "event_status_change"
	ActionPostVerified        Action = "post_verified"
	ActionPostUnverified      Action = "post_unverified"
	ActionPostEscalated       Action = "post_escalated"

	// Security actions
	ActionAuthFailed        Action = "auth_failed"
	ActionLockoutTriggered  Action = "auth_lockout_triggered"
	ActionRateLimitExceeded Action = "rate_limit_exceeded"
	ActionIPBanned          Action = "ip_banned"
	ActionIPUnbanned        Action = "ip_unbanned"
	ActionTokenRevoked      Action = "token_revoked"

	// Payment actions
	ActionPaymentAttempt        Action = "payment_attempt"
	ActionPaymentSucceeded      Action = "payment_succeeded"
	ActionPaymentFailed         Action = "payment_failed"
	ActionRefundRequested       Action = "refund_requested"
	ActionSubscriptionCreated   Action = "subscription_created"
	ActionSubscriptionCancelled Action = "subscription_cancelled"
	ActionWebhookReceived       Action = "webhook_received"
)

// actionCategories maps each action to its category. Actions missing from
// the map fall back to operations.
var actionCategories = map[Action]EventCategory{
	ActionRoleChange:          CategoryModeration,
	ActionPostStatus:          CategoryModeration,
	ActionPostDeleted:         CategoryModeration,
	ActionReportHandled:       CategoryModeration,
	ActionVerificationHandled: CategoryModeration,
	ActionUserBanned:          CategoryModeration,
	ActionUserUnbanned:        CategoryModeration,
	ActionUserDeleted:         CategoryModeration,
	ActionIdentityConfirmed:   CategoryModeration,
	ActionPersonDeleted:       CategoryModeration,
	ActionPersonStatusChange:  CategoryModeration,
	ActionPersonRoleChange:    CategoryModeration,
	ActionEventStatusChange:   CategoryModeration,
	ActionPostVerified:        CategoryModeration,
	ActionPostUnverified:      CategoryModeration,
	ActionPostEscalated:       CategoryModeration,

	ActionAuthFailed:        CategorySecurity,
	ActionLockoutTriggered:  CategorySecurity,
	ActionRateLimitExceeded: CategorySecurity,
	ActionIPBanned:          CategorySecurity,
	ActionIPUnbanned:        CategorySecurity,
	ActionTokenRevoked:      CategorySecurity,

	ActionPaymentAttempt:        CategoryPayments,
	ActionPaymentSucceeded:      CategoryPayments,
	ActionPaymentFailed:         CategoryPayments,
	ActionRefundRequested:       CategoryPayments,
	ActionSubscriptionCreated:   CategoryPayments,
	ActionSubscriptionCancelled: CategoryPayments,
	ActionWebhookReceived:       CategoryPayments,
}

// Category returns the event category for an action.
func (a Action) Category() EventCategory {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Store persists audit events. Postgres writes an outbox row; the in-memory
// store backs tests and demo mode.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	ListByActor(ctx context.Context, actorID id.UserID, limit int) ([]Event, error)
}
