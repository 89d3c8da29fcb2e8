package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flemzord/slackapprove/internal/ledger"
)

// Store is a ledger.Store on Redis. Claims are a single SET NX with the
// TTL, so every replica pointed at the same server agrees on the winner.
type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

var _ ledger.Store = (*Store)(nil)

// NewStore wraps an existing client.
func NewStore(client *goredis.Client, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = ledger.DefaultTTL
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// claimAttempts bounds the retry when a recorded decision expires between
// SET NX and GET.
const claimAttempts = 2

// Claim implements workflow.Ledger.
func (s *Store) Claim(ctx context.Context, key, status string) (string, bool, error) {
	k := s.prefix + key
	for range claimAttempts {
		ok, err := s.client.SetNX(ctx, k, status, s.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("redis: claim: %w", err)
		}
		if ok {
			return status, true, nil
		}

		recorded, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("redis: read decision: %w", err)
		}
		return recorded, false, nil
	}
	return "", false, fmt.Errorf("redis: claim %s: decision expired during read", key)
}

// Backend implements ledger.Store.
func (s *Store) Backend() string { return "redis" }

// Ping implements ledger.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Prune implements ledger.Store. Redis expires keys itself.
func (s *Store) Prune(context.Context) (int, error) {
	return 0, nil
}

// Close implements ledger.Store.
func (s *Store) Close() error {
	return s.client.Close()
}
