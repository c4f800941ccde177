// Package cache provides Redis-backed snapshot storage for the
// in-memory caches, so a restarted process can serve observers before
// its first backend fetch.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trading_bridge/internal/feature/accounts/domain/entity"
	"trading_bridge/internal/feature/accounts/usecase"
)

// AccountSnapshotStore persists the account cache contents as one JSON
// blob. A nil Redis client disables the store: Save and Load become
// no-ops, so callers never need to special-case a missing Redis.
type AccountSnapshotStore struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// Compile-time check against the account manager's port.
var _ usecase.SnapshotStore = (*AccountSnapshotStore)(nil)

// NewAccountSnapshotStore creates a store. If ttl is 0 it defaults to
// 24 hours; if namespace is empty it uses "accounts".
func NewAccountSnapshotStore(rdb *redis.Client, ttl time.Duration, namespace string) *AccountSnapshotStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if namespace == "" {
		namespace = "accounts"
	}
	return &AccountSnapshotStore{rdb: rdb, ttl: ttl, namespace: namespace}
}

// Save overwrites the stored snapshot.
func (s *AccountSnapshotStore) Save(ctx context.Context, accounts []entity.Account) error {
	if s.rdb == nil {
		return nil
	}
	b, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("marshal account snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store account snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or nil when none exists.
func (s *AccountSnapshotStore) Load(ctx context.Context) ([]entity.Account, error) {
	if s.rdb == nil {
		return nil, nil
	}
	b, err := s.rdb.Get(ctx, s.key()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account snapshot: %w", err)
	}
	var accounts []entity.Account
	if err := json.Unmarshal(b, &accounts); err != nil {
		return nil, fmt.Errorf("decode account snapshot: %w", err)
	}
	return accounts, nil
}

func (s *AccountSnapshotStore) key() string {
	return s.namespace + ":snapshot"
}
