package models

// ModerationDecision is the initial state assigned to a new post.
type ModerationDecision struct {
	Status   PostStatus
	Verified bool
}

// InitialModeration decides where a new post starts.
//
// Flagged content always enters review. Admin and politician posts are
// approved and pre-verified; posts from identity-confirmed authors are
// approved; everything else waits for review.
func InitialModeration(authorRole string, identityConfirmed, flagged bool) ModerationDecision {
	if flagged {
		return ModerationDecision{Status: StatusPendingReview}
	}
	switch authorRole {
	case "admin", "politician":
		return ModerationDecision{Status: StatusApproved, Verified: true}
	}
	if identityConfirmed {
		return ModerationDecision{Status: StatusApproved}
	}
	return ModerationDecision{Status: StatusPendingReview}
}
