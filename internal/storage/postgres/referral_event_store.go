package postgres

import (
	"context"
	"fmt"

	"contest-dashboard/internal/domain"
	"contest-dashboard/internal/storage"
)

// ReferralEventStore implements storage.ReferralEventStore using PostgreSQL.
type ReferralEventStore struct {
	pool *Pool
}

// NewReferralEventStore creates a new ReferralEventStore.
func NewReferralEventStore(pool *Pool) *ReferralEventStore {
	return &ReferralEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReferralEventStore = (*ReferralEventStore)(nil)

// Insert records a referral event.
func (s *ReferralEventStore) Insert(ctx context.Context, event *domain.ReferralEvent) error {
	if event == nil || event.Code == "" || event.Kind == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO referral_events (invite_code, kind, user_id, occurred_at_ms)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, event.Code, string(event.Kind), event.UserID, event.TimestampMs)
	if err != nil {
		return fmt.Errorf("insert referral event: %w", err)
	}
	return nil
}

// GetByCode retrieves all events for an invite code, ordered by occurrence ASC.
func (s *ReferralEventStore) GetByCode(ctx context.Context, code string) ([]*domain.ReferralEvent, error) {
	if code == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT invite_code, kind, user_id, occurred_at_ms
		FROM referral_events
		WHERE invite_code = $1
		ORDER BY occurred_at_ms ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("query referral events: %w", err)
	}
	defer rows.Close()

	var events []*domain.ReferralEvent
	for rows.Next() {
		var ev domain.ReferralEvent
		var kind string
		if err := rows.Scan(&ev.Code, &kind, &ev.UserID, &ev.TimestampMs); err != nil {
			return nil, fmt.Errorf("scan referral event: %w", err)
		}
		ev.Kind = domain.ReferralEventKind(kind)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// CountByKind counts events for an invite code grouped by kind.
func (s *ReferralEventStore) CountByKind(ctx context.Context, code string) (map[domain.ReferralEventKind]int64, error) {
	if code == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT kind, count(*)
		FROM referral_events
		WHERE invite_code = $1
		GROUP BY kind
	`

	rows, err := s.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("count referral events: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ReferralEventKind]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.ReferralEventKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}
