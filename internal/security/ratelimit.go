package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitConfig holds per-kind limits for inbound interactions, counted
// over a one-minute sliding window. Zero means use the default; a negative
// value disables the bucket.
type RateLimitConfig struct {
	CommandsPerMin    int `yaml:"commands_per_min"`
	SubmissionsPerMin int `yaml:"submissions_per_min"`
	ActionsPerMin     int `yaml:"actions_per_min"`
}

// rateLimitConfigDefaults returns a config with sensible defaults.
func rateLimitConfigDefaults() RateLimitConfig {
	return RateLimitConfig{
		CommandsPerMin:    120,
		SubmissionsPerMin: 120,
		ActionsPerMin:     600,
	}
}

// Bucket names, matching the interaction kinds they limit.
const (
	BucketCommand        = "command"
	BucketViewSubmission = "view_submission"
	BucketBlockAction    = "block_action"
)

// RateLimiter implements sliding window rate limiting.
// Each bucket tracks timestamps of recent events within its window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	window time.Duration
	limit  int
	events []time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := rateLimitConfigDefaults()

	rl := &RateLimiter{
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	rl.add(BucketCommand, cfg.CommandsPerMin, defaults.CommandsPerMin)
	rl.add(BucketViewSubmission, cfg.SubmissionsPerMin, defaults.SubmissionsPerMin)
	rl.add(BucketBlockAction, cfg.ActionsPerMin, defaults.ActionsPerMin)
	return rl
}

func (rl *RateLimiter) add(name string, limit, def int) {
	switch {
	case limit < 0:
		return
	case limit == 0:
		limit = def
	}
	rl.buckets[name] = &bucket{window: time.Minute, limit: limit}
}

// Allow checks whether an event of the given kind is allowed.
// Returns nil if allowed, ErrRateLimited if the limit is exceeded.
// Kinds without a bucket are never limited.
func (rl *RateLimiter) Allow(kind string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	b.evict(now)

	if len(b.events) >= b.limit {
		return ErrRateLimited
	}

	b.events = append(b.events, now)
	return nil
}

// Limit returns the configured limit for kind, or 0 if unlimited.
func (rl *RateLimiter) Limit(kind string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok := rl.buckets[kind]; ok {
		return b.limit
	}
	return 0
}

// evict removes events outside the sliding window.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.window)
	// Events are chronologically ordered.
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
