package memory

import (
	"context"
	"sync"

	"contest-dashboard/internal/domain"
	"contest-dashboard/internal/storage"
)

// ReferralEventStore is an in-memory implementation of storage.ReferralEventStore.
type ReferralEventStore struct {
	mu     sync.RWMutex
	byCode map[string][]*domain.ReferralEvent
}

// NewReferralEventStore creates a new in-memory referral event store.
func NewReferralEventStore() *ReferralEventStore {
	return &ReferralEventStore{
		byCode: make(map[string][]*domain.ReferralEvent),
	}
}

// Insert records a referral event.
func (s *ReferralEventStore) Insert(_ context.Context, event *domain.ReferralEvent) error {
	if event == nil || event.Code == "" || event.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *event
	s.byCode[event.Code] = append(s.byCode[event.Code], &eventCopy)
	return nil
}

// GetByCode retrieves all events for an invite code in insertion order.
// Events are inserted as they occur, so insertion order matches occurrence.
func (s *ReferralEventStore) GetByCode(_ context.Context, code string) ([]*domain.ReferralEvent, error) {
	if code == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byCode[code]
	result := make([]*domain.ReferralEvent, len(events))
	for i, ev := range events {
		evCopy := *ev
		result[i] = &evCopy
	}
	return result, nil
}

// CountByKind counts events for an invite code grouped by kind.
func (s *ReferralEventStore) CountByKind(_ context.Context, code string) (map[domain.ReferralEventKind]int64, error) {
	if code == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.ReferralEventKind]int64)
	for _, ev := range s.byCode[code] {
		counts[ev.Kind]++
	}
	return counts, nil
}

var _ storage.ReferralEventStore = (*ReferralEventStore)(nil)
