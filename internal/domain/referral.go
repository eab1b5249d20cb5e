package domain

// ReferralStats is a user's referral program summary.
type ReferralStats struct {
	Code           string  `json:"code"`
	Clicks         int     `json:"clicks"`
	Conversions    int     `json:"conversions"`
	RewardsSOL     float64 `json:"rewards_sol"`
	PendingRewards float64 `json:"pending_rewards_sol"`
}

// ReferralEventKind identifies an invite-funnel event.
type ReferralEventKind string

const (
	ReferralClick      ReferralEventKind = "click"
	ReferralConversion ReferralEventKind = "conversion"
)

// ReferralEvent is published on the referral event bus when a tracked
// invite link is clicked or converts into a signup.
type ReferralEvent struct {
	Kind        ReferralEventKind `json:"kind"`
	Code        string            `json:"code"`
	UserID      string            `json:"user_id,omitempty"`
	TimestampMs int64             `json:"timestamp_ms"`
}
