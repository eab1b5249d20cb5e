package storage

import (
	"context"

	"contest-dashboard/internal/domain"
)

// ClientState is the per-user persisted dashboard state: the invite code
// a user arrived with and whether they have dismissed the welcome flow.
type ClientState struct {
	UserID      string // owning user, unique key
	InviteCode  string // referral/invite code, empty when none
	WelcomeSeen bool   // welcome flow dismissed
	UpdatedAtMs int64  // last write timestamp (ms)
}

// ClientStateStore persists per-user dashboard state.
type ClientStateStore interface {
	// Get retrieves state for a user. Returns ErrNotFound if not exists.
	Get(ctx context.Context, userID string) (*ClientState, error)

	// SetInviteCode records the invite code a user arrived with,
	// creating the state row if absent.
	SetInviteCode(ctx context.Context, userID, code string) error

	// MarkWelcomeSeen records that the user dismissed the welcome flow,
	// creating the state row if absent.
	MarkWelcomeSeen(ctx context.Context, userID string) error
}

// ReferralEventStore persists referral attribution events.
type ReferralEventStore interface {
	// Insert records a referral event.
	Insert(ctx context.Context, event *domain.ReferralEvent) error

	// GetByCode retrieves all events for an invite code, ordered by
	// occurrence ASC.
	GetByCode(ctx context.Context, code string) ([]*domain.ReferralEvent, error)

	// CountByKind counts events for an invite code grouped by kind.
	CountByKind(ctx context.Context, code string) (map[domain.ReferralEventKind]int64, error)
}

// BalanceSnapshotStore archives wallet balance points beyond the
// in-memory rolling window.
type BalanceSnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails the entire batch on a
	// duplicate (wallet, timestamp_ms).
	InsertBulk(ctx context.Context, snapshots []*domain.BalanceSnapshot) error

	// GetByWallet retrieves all snapshots for a wallet, ordered by
	// timestamp ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.BalanceSnapshot, error)

	// GetByTimeRange retrieves snapshots for a wallet within
	// [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.BalanceSnapshot, error)
}
