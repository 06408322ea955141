// Package dedup remembers delivered webhook message ids so redeliveries can be skipped.
// It is an optimization: event processing stays idempotent without it.
package dedup

import (
	"context"
	"sync"
	"time"
)

// Store reserves message ids for a bounded time.
type Store interface {
	// Reserve records key until ttl elapses. It returns false if key is already reserved.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so a failed delivery can be retried.
	Release(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store. Entries are swept lazily on access.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]time.Time
	nowF func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]time.Time),
		nowF: time.Now,
	}
}

// Reserve records key until now+ttl.
func (s *MemoryStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	if exp, ok := s.m[key]; ok && exp.After(now) {
		return false, nil
	}
	s.m[key] = now.Add(ttl)
	if len(s.m)%256 == 0 {
		s.sweepLocked(now)
	}
	return true, nil
}

// Release removes key.
func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for k, exp := range s.m {
		if !exp.After(now) {
			delete(s.m, k)
		}
	}
}

// Len returns the number of entries, including ones that have expired but not yet been swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
