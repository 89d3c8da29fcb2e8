package ledger

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	status  string
	expires time.Time
}

// MemoryStore is a process-local Store. Its contents do not survive a
// restart, and it does not coordinate between replicas.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose entries live for ttl (DefaultTTL if
// ttl <= 0).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Claim implements workflow.Ledger.
func (s *MemoryStore) Claim(_ context.Context, key, status string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, ErrClosed
	}

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		return e.status, false, nil
	}
	s.entries[key] = memoryEntry{status: status, expires: now.Add(s.ttl)}
	return status, true, nil
}

// Backend implements Store.
func (s *MemoryStore) Backend() string { return "memory" }

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Prune implements Store.
func (s *MemoryStore) Prune(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	pruned := 0
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
			pruned++
		}
	}
	return pruned, nil
}

// Len returns the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
