package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"contest-dashboard/internal/domain"
	"contest-dashboard/internal/storage"
)

// BalanceSnapshotStore implements storage.BalanceSnapshotStore using ClickHouse.
type BalanceSnapshotStore struct {
	conn *Conn
}

// NewBalanceSnapshotStore creates a new BalanceSnapshotStore.
func NewBalanceSnapshotStore(conn *Conn) *BalanceSnapshotStore {
	return &BalanceSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BalanceSnapshotStore = (*BalanceSnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate
// (wallet, timestamp_ms).
func (s *BalanceSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.BalanceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		wallet      string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, snap := range snapshots {
		if snap == nil || snap.Wallet == "" {
			return storage.ErrInvalidInput
		}
		k := key{snap.Wallet, snap.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows: MergeTree does not
	// enforce uniqueness at insert time
	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.Wallet, snap.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO balance_snapshots (
			wallet, timestamp_ms, lamports, sol
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.Wallet, uint64(snap.TimestampMs), snap.Lamports, snap.SOL,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByWallet retrieves all snapshots for a wallet, ordered by timestamp ASC.
func (s *BalanceSnapshotStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.BalanceSnapshot, error) {
	query := `
		SELECT wallet, timestamp_ms, lamports, sol
		FROM balance_snapshots
		WHERE wallet = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("query by wallet: %w", err)
	}
	defer rows.Close()

	return scanBalanceSnapshots(rows)
}

// GetByTimeRange retrieves snapshots for a wallet within [start, end] (inclusive).
func (s *BalanceSnapshotStore) GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.BalanceSnapshot, error) {
	query := `
		SELECT wallet, timestamp_ms, lamports, sol
		FROM balance_snapshots
		WHERE wallet = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanBalanceSnapshots(rows)
}

// exists checks if a snapshot with the given key exists.
func (s *BalanceSnapshotStore) exists(ctx context.Context, wallet string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM balance_snapshots
		WHERE wallet = ? AND timestamp_ms = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, wallet, uint64(timestampMs)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanBalanceSnapshots scans query rows into snapshots.
func scanBalanceSnapshots(rows driver.Rows) ([]*domain.BalanceSnapshot, error) {
	var snapshots []*domain.BalanceSnapshot
	for rows.Next() {
		var snap domain.BalanceSnapshot
		var timestampMs uint64

		if err := rows.Scan(&snap.Wallet, &timestampMs, &snap.Lamports, &snap.SOL); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.TimestampMs = int64(timestampMs)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return snapshots, nil
}
