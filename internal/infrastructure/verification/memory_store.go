package verification

import (
	"context"
	"sync"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

type memoryItem struct {
	value     []byte
	version   int64
	expiresAt time.Time
}

// MemoryStore is a process-local domain.VerificationStore. All operations
// on all keys serialize on one mutex, which is what makes CompareAndSwap
// an exclusive per-key update.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*memoryItem
	seq   int64
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates a store that evaluates expiry against now
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*memoryItem),
		now:   now,
	}
}

var _ domain.VerificationStore = (*MemoryStore)(nil)

// live returns the item at key, dropping it if it has expired. Caller holds mu.
func (s *MemoryStore) live(key string) *memoryItem {
	it, ok := s.items[key]
	if !ok {
		return nil
	}
	if !it.expiresAt.IsZero() && !s.now().Before(it.expiresAt) {
		delete(s.items, key)
		return nil
	}
	return it
}

func (s *MemoryStore) put(key string, value []byte, ttl time.Duration) int64 {
	s.seq++
	it := &memoryItem{
		value:   append([]byte(nil), value...),
		version: s.seq,
	}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = it
	return it.version
}

// Get implements domain.VerificationStore
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.live(key)
	if it == nil {
		return nil, 0, nil
	}
	return append([]byte(nil), it.value...), it.version, nil
}

// Set implements domain.VerificationStore
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.put(key, value, ttl), nil
}

// Delete implements domain.VerificationStore
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// CompareAndSwap implements domain.VerificationStore
func (s *MemoryStore) CompareAndSwap(_ context.Context, key string, expected int64, value []byte, ttl time.Duration) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if it := s.live(key); it != nil {
		current = it.version
	}
	if current != expected {
		return false, current, nil
	}
	return true, s.put(key, value, ttl), nil
}

// CompareAndDelete implements domain.VerificationStore
func (s *MemoryStore) CompareAndDelete(_ context.Context, key string, expected int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if it := s.live(key); it != nil {
		current = it.version
	}
	if current != expected {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

// Sweep removes expired items. Expiry is otherwise only noticed on access.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.items {
		if s.live(key) == nil {
			removed++
		}
	}
	return removed
}
