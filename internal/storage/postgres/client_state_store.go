package postgres

import (
	"context"
	"fmt"
	"time"

	"contest-dashboard/internal/storage"
)

// ClientStateStore implements storage.ClientStateStore using PostgreSQL.
type ClientStateStore struct {
	pool *Pool
}

// NewClientStateStore creates a new ClientStateStore.
func NewClientStateStore(pool *Pool) *ClientStateStore {
	return &ClientStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClientStateStore = (*ClientStateStore)(nil)

// Get retrieves state for a user. Returns ErrNotFound if not exists.
func (s *ClientStateStore) Get(ctx context.Context, userID string) (*storage.ClientState, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT user_id, invite_code, welcome_seen, updated_at_ms
		FROM client_state
		WHERE user_id = $1
	`

	var state storage.ClientState
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&state.UserID,
		&state.InviteCode,
		&state.WelcomeSeen,
		&state.UpdatedAtMs,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get client state: %w", err)
	}
	return &state, nil
}

// SetInviteCode records the invite code a user arrived with, creating the
// state row if absent.
func (s *ClientStateStore) SetInviteCode(ctx context.Context, userID, code string) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO client_state (user_id, invite_code, welcome_seen, updated_at_ms)
		VALUES ($1, $2, FALSE, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET invite_code = EXCLUDED.invite_code,
		    updated_at_ms = EXCLUDED.updated_at_ms
	`

	_, err := s.pool.Exec(ctx, query, userID, code, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set invite code: %w", err)
	}
	return nil
}

// MarkWelcomeSeen records that the user dismissed the welcome flow,
// creating the state row if absent.
func (s *ClientStateStore) MarkWelcomeSeen(ctx context.Context, userID string) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO client_state (user_id, invite_code, welcome_seen, updated_at_ms)
		VALUES ($1, '', TRUE, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET welcome_seen = TRUE,
		    updated_at_ms = EXCLUDED.updated_at_ms
	`

	_, err := s.pool.Exec(ctx, query, userID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("mark welcome seen: %w", err)
	}
	return nil
}
