// Package referral tracks invite-link attribution: clicks, conversions,
// and the persisted invite code a user signed up with. Events flow over
// an explicit bus so consumers register against a value they can see
// instead of a process-wide hook.
package referral

import (
	"sync"

	"contest-dashboard/internal/domain"
)

// busBuffer is the per-subscriber channel depth. Slow subscribers drop
// events rather than block publishers.
const busBuffer = 64

// Bus is a fan-out publisher of referral events.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan domain.ReferralEvent
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[uint64]chan domain.ReferralEvent),
	}
}

// Subscribe registers a new consumer. The returned cancel function
// removes the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan domain.ReferralEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.ReferralEvent, busBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to all current subscribers. Subscribers
// with a full buffer miss the event.
func (b *Bus) Publish(event domain.ReferralEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
