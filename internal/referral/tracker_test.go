package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	"contest-dashboard/internal/domain"
	"contest-dashboard/internal/storage"
	"contest-dashboard/internal/storage/memory"
)

func newTestTracker() (*Tracker, *memory.ClientStateStore, *Bus) {
	states := memory.NewClientStateStore()
	bus := NewBus()
	tracker := NewTracker(memory.NewReferralEventStore(), states, bus)
	return tracker, states, bus
}

func TestTracker_RecordClick(t *testing.T) {
	tracker, _, bus := newTestTracker()
	defer bus.Close()
	ctx := context.Background()

	if err := tracker.RecordClick(ctx, "abc"); err != nil {
		t.Fatalf("RecordClick failed: %v", err)
	}

	clicks, conversions, err := tracker.FunnelCounts(ctx, "ABC")
	if err != nil {
		t.Fatalf("FunnelCounts failed: %v", err)
	}
	if clicks != 1 || conversions != 0 {
		t.Errorf("funnel = %d clicks, %d conversions, want 1, 0", clicks, conversions)
	}
}

func TestTracker_RecordConversionPersistsInviteCode(t *testing.T) {
	tracker, states, bus := newTestTracker()
	defer bus.Close()
	ctx := context.Background()

	if err := tracker.RecordConversion(ctx, " abc ", "user-1"); err != nil {
		t.Fatalf("RecordConversion failed: %v", err)
	}

	state, err := states.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get state failed: %v", err)
	}
	if state.InviteCode != "ABC" {
		t.Errorf("invite code = %q, want normalized ABC", state.InviteCode)
	}

	code, err := tracker.InviteCode(ctx, "user-1")
	if err != nil || code != "ABC" {
		t.Errorf("InviteCode = %q, %v", code, err)
	}
}

func TestTracker_InviteCodeUnknownUser(t *testing.T) {
	tracker, _, bus := newTestTracker()
	defer bus.Close()

	code, err := tracker.InviteCode(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("InviteCode failed: %v", err)
	}
	if code != "" {
		t.Errorf("code = %q, want empty for unknown user", code)
	}
}

func TestTracker_RejectsEmptyInput(t *testing.T) {
	tracker, _, bus := newTestTracker()
	defer bus.Close()
	ctx := context.Background()

	if err := tracker.RecordClick(ctx, "  "); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty code: err = %v, want ErrInvalidInput", err)
	}
	if err := tracker.RecordConversion(ctx, "abc", ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty user: err = %v, want ErrInvalidInput", err)
	}
}

func TestTracker_PublishesOnBus(t *testing.T) {
	tracker, _, bus := newTestTracker()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	if err := tracker.RecordClick(context.Background(), "abc"); err != nil {
		t.Fatalf("RecordClick failed: %v", err)
	}

	select {
	case event := <-ch:
		if event.Kind != domain.ReferralClick || event.Code != "ABC" {
			t.Errorf("event = %+v", event)
		}
		if event.TimestampMs == 0 {
			t.Error("event timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}
