package referral

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contest-dashboard/internal/domain"
	"contest-dashboard/internal/storage"
)

// Tracker records referral funnel events and persists invite-code
// attribution per user. Every recorded event is stored and then
// published on the bus.
type Tracker struct {
	events storage.ReferralEventStore
	states storage.ClientStateStore
	bus    *Bus
	now    func() time.Time
}

// NewTracker creates a tracker over the given stores and bus.
func NewTracker(events storage.ReferralEventStore, states storage.ClientStateStore, bus *Bus) *Tracker {
	return &Tracker{
		events: events,
		states: states,
		bus:    bus,
		now:    time.Now,
	}
}

// RecordClick registers an invite-link click for a code.
func (t *Tracker) RecordClick(ctx context.Context, code string) error {
	return t.record(ctx, domain.ReferralEvent{
		Kind: domain.ReferralClick,
		Code: normalizeCode(code),
	})
}

// RecordConversion registers a signup attributed to a code and persists
// the code on the converting user's state.
func (t *Tracker) RecordConversion(ctx context.Context, code, userID string) error {
	code = normalizeCode(code)
	if userID == "" {
		return storage.ErrInvalidInput
	}

	if err := t.states.SetInviteCode(ctx, userID, code); err != nil {
		return fmt.Errorf("persist invite code: %w", err)
	}

	return t.record(ctx, domain.ReferralEvent{
		Kind:   domain.ReferralConversion,
		Code:   code,
		UserID: userID,
	})
}

// InviteCode returns the persisted invite code for a user, or empty
// when the user has no state yet.
func (t *Tracker) InviteCode(ctx context.Context, userID string) (string, error) {
	state, err := t.states.Get(ctx, userID)
	if err != nil {
		if err == storage.ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return state.InviteCode, nil
}

// FunnelCounts returns click and conversion totals for a code.
func (t *Tracker) FunnelCounts(ctx context.Context, code string) (clicks, conversions int64, err error) {
	counts, err := t.events.CountByKind(ctx, normalizeCode(code))
	if err != nil {
		return 0, 0, err
	}
	return counts[domain.ReferralClick], counts[domain.ReferralConversion], nil
}

func (t *Tracker) record(ctx context.Context, event domain.ReferralEvent) error {
	if event.Code == "" {
		return storage.ErrInvalidInput
	}
	event.TimestampMs = t.now().UnixMilli()

	if err := t.events.Insert(ctx, &event); err != nil {
		return fmt.Errorf("store referral event: %w", err)
	}
	if t.bus != nil {
		t.bus.Publish(event)
	}
	return nil
}

// normalizeCode canonicalizes invite codes: codes arrive from URLs and
// manual entry with inconsistent case and padding.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
