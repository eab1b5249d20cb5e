// Package redis provides a Redis-backed client state store for
// deployments that keep per-user dashboard flags in the shared cache
// instead of Postgres.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"contest-dashboard/internal/storage"
)

// keyPrefix namespaces client state hashes.
const keyPrefix = "client_state:"

// ClientStateStore implements storage.ClientStateStore using Redis hashes.
type ClientStateStore struct {
	rdb *redis.Client
}

// NewClientStateStore creates a store on an existing Redis client.
func NewClientStateStore(rdb *redis.Client) *ClientStateStore {
	return &ClientStateStore{rdb: rdb}
}

// NewClient creates a Redis client from a URL with pool defaults tuned
// for many short operations.
func NewClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 20
	opt.MinIdleConns = 5
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	return redis.NewClient(opt), nil
}

// Compile-time interface check.
var _ storage.ClientStateStore = (*ClientStateStore)(nil)

// Get retrieves state for a user. Returns ErrNotFound if not exists.
func (s *ClientStateStore) Get(ctx context.Context, userID string) (*storage.ClientState, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	fields, err := s.rdb.HGetAll(ctx, keyPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("get client state: %w", err)
	}
	if len(fields) == 0 {
		return nil, storage.ErrNotFound
	}

	state := &storage.ClientState{
		UserID:      userID,
		InviteCode:  fields["invite_code"],
		WelcomeSeen: fields["welcome_seen"] == "1",
	}
	if raw, ok := fields["updated_at_ms"]; ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			state.UpdatedAtMs = ms
		}
	}
	return state, nil
}

// SetInviteCode records the invite code a user arrived with.
func (s *ClientStateStore) SetInviteCode(ctx context.Context, userID, code string) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	err := s.rdb.HSet(ctx, keyPrefix+userID,
		"invite_code", code,
		"updated_at_ms", time.Now().UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("set invite code: %w", err)
	}
	return nil
}

// MarkWelcomeSeen records that the user dismissed the welcome flow.
func (s *ClientStateStore) MarkWelcomeSeen(ctx context.Context, userID string) error {
	if userID == "" {
		return storage.ErrInvalidInput
	}

	err := s.rdb.HSet(ctx, keyPrefix+userID,
		"welcome_seen", "1",
		"updated_at_ms", time.Now().UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("mark welcome seen: %w", err)
	}
	return nil
}
