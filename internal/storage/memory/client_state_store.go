package memory

import (
	"context"
	"sync"
	"time"

	"contest-dashboard/internal/storage"
)

// ClientStateStore is an in-memory implementation of storage.ClientStateStore.
type ClientStateStore struct {
	mu     sync.RWMutex
	byUser map[string]*storage.ClientState
}

// NewClientStateStore creates a new in-memory client state store.
func NewClientStateStore() *ClientStateStore {
	return &ClientStateStore{
		byUser: make(map[string]*storage.ClientState),
	}
}

// Get retrieves state for a user. Returns ErrNotFound if not exists.
func (s *ClientStateStore) Get(_ context.Context, userID string) (*storage.ClientState, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.byUser[userID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	stateCopy := *state
	return &stateCopy, nil
}

// SetInviteCode records the invite code a user arrived with.
func (s *ClientStateStore) SetInviteCode(_ context.Context, userID, code string) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.ensure(userID)
	state.InviteCode = code
	state.UpdatedAtMs = time.Now().UnixMilli()
	return nil
}

// MarkWelcomeSeen records that the user dismissed the welcome flow.
func (s *ClientStateStore) MarkWelcomeSeen(_ context.Context, userID string) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.ensure(userID)
	state.WelcomeSeen = true
	state.UpdatedAtMs = time.Now().UnixMilli()
	return nil
}

// ensure returns the state row for a user, creating it if absent.
// Caller must hold the write lock.
func (s *ClientStateStore) ensure(userID string) *storage.ClientState {
	state, exists := s.byUser[userID]
	if !exists {
		state = &storage.ClientState{UserID: userID}
		s.byUser[userID] = state
	}
	return state
}

var _ storage.ClientStateStore = (*ClientStateStore)(nil)
