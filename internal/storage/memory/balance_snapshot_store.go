package memory

import (
	"context"
	"sort"
	"sync"

	"contest-dashboard/internal/domain"
	"contest-dashboard/internal/storage"
)

// snapshotKey identifies one snapshot row.
type snapshotKey struct {
	wallet      string
	timestampMs int64
}

// BalanceSnapshotStore is an in-memory implementation of storage.BalanceSnapshotStore.
type BalanceSnapshotStore struct {
	mu       sync.RWMutex
	byWallet map[string][]*domain.BalanceSnapshot
	keys     map[snapshotKey]bool
}

// NewBalanceSnapshotStore creates a new in-memory balance snapshot store.
func NewBalanceSnapshotStore() *BalanceSnapshotStore {
	return &BalanceSnapshotStore{
		byWallet: make(map[string][]*domain.BalanceSnapshot),
		keys:     make(map[snapshotKey]bool),
	}
}

// InsertBulk adds multiple snapshots. Fails the entire batch on any
// duplicate, including intra-batch duplicates.
func (s *BalanceSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.BalanceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before mutating anything
	seen := make(map[snapshotKey]bool, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.Wallet == "" {
			return storage.ErrInvalidInput
		}
		key := snapshotKey{wallet: snap.Wallet, timestampMs: snap.TimestampMs}
		if s.keys[key] || seen[key] {
			return storage.ErrDuplicateKey
		}
		seen[key] = true
	}

	for _, snap := range snapshots {
		snapCopy := *snap
		s.byWallet[snap.Wallet] = append(s.byWallet[snap.Wallet], &snapCopy)
		s.keys[snapshotKey{wallet: snap.Wallet, timestampMs: snap.TimestampMs}] = true
	}
	return nil
}

// GetByWallet retrieves all snapshots for a wallet, ordered by timestamp ASC.
func (s *BalanceSnapshotStore) GetByWallet(_ context.Context, wallet string) ([]*domain.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedCopy(s.byWallet[wallet]), nil
}

// GetByTimeRange retrieves snapshots within [start, end] inclusive, ASC.
func (s *BalanceSnapshotStore) GetByTimeRange(_ context.Context, wallet string, start, end int64) ([]*domain.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*domain.BalanceSnapshot
	for _, snap := range s.byWallet[wallet] {
		if snap.TimestampMs >= start && snap.TimestampMs <= end {
			filtered = append(filtered, snap)
		}
	}
	return s.sortedCopy(filtered), nil
}

// sortedCopy returns copies of the snapshots ordered by timestamp ASC.
// Caller must hold at least the read lock.
func (s *BalanceSnapshotStore) sortedCopy(snapshots []*domain.BalanceSnapshot) []*domain.BalanceSnapshot {
	out := make([]*domain.BalanceSnapshot, len(snapshots))
	for i, snap := range snapshots {
		snapCopy := *snap
		out[i] = &snapCopy
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TimestampMs < out[j].TimestampMs
	})
	return out
}

var _ storage.BalanceSnapshotStore = (*BalanceSnapshotStore)(nil)
