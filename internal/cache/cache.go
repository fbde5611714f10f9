// Package cache keeps per-session values in memory with a sliding TTL and a
// bound on the number of live sessions.
package cache

import (
	"sync"
	"time"
)

// entry wraps a value with its expiry and last-use order.
type entry[V any] struct {
	value   V
	expiry  time.Time
	usedIdx int64
}

// Store maps session IDs to values. Each read extends the entry's lifetime.
// When full, the least recently used entry is evicted. Safe for concurrent use.
type Store[V any] struct {
	mu         sync.Mutex
	items      map[string]*entry[V]
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	onEvict    func(key string, value V)
	now        func() time.Time
}

// New creates a Store with the given TTL and max entry count.
func New[V any](ttl time.Duration, maxEntries int) *Store[V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Store[V]{
		items:      make(map[string]*entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// OnEvict registers fn to run for every value removed by expiry, eviction or
// Delete. fn runs with the store lock held and must not call back into it.
func (s *Store[V]) OnEvict(fn func(key string, value V)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Get returns the value for key if present and not expired.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrCreate returns the value for key, creating it with create when absent
// or expired. created reports whether create ran.
func (s *Store[V]) GetOrCreate(key string, create func() V) (value V, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.lookup(key); ok {
		return e.value, false
	}
	v := create()
	s.insert(key, v)
	return v, true
}

// Set stores value under key, replacing any existing value.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.items[key]; exists {
		delete(s.items, key)
		s.evicted(key, old.value)
	}
	s.insert(key, value)
}

// Delete removes key.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok {
		delete(s.items, key)
		s.evicted(key, e.value)
	}
}

// Len returns the number of stored entries, expired ones included until
// they are swept.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store[V]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.items {
		if now.After(e.expiry) {
			delete(s.items, key)
			s.evicted(key, e.value)
			removed++
		}
	}
	return removed
}

// lookup finds a live entry and refreshes it. Must be called with mu held.
func (s *Store[V]) lookup(key string) (*entry[V], bool) {
	e, ok := s.items[key]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.After(e.expiry) {
		delete(s.items, key)
		s.evicted(key, e.value)
		return nil, false
	}
	e.expiry = now.Add(s.ttl)
	e.usedIdx = s.nextIdx
	s.nextIdx++
	return e, true
}

// insert adds a new entry, evicting the least recently used one if at
// capacity. Must be called with mu held.
func (s *Store[V]) insert(key string, value V) {
	if len(s.items) >= s.maxEntries {
		s.evictOldest()
	}
	s.items[key] = &entry[V]{
		value:   value,
		expiry:  s.now().Add(s.ttl),
		usedIdx: s.nextIdx,
	}
	s.nextIdx++
}

// evictOldest removes the entry with the lowest usedIdx. Must be called with mu held.
func (s *Store[V]) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range s.items {
		if oldestIdx == -1 || e.usedIdx < oldestIdx {
			oldestIdx = e.usedIdx
			oldestKey = key
		}
	}

	if e, ok := s.items[oldestKey]; ok {
		delete(s.items, oldestKey)
		s.evicted(oldestKey, e.value)
	}
}

func (s *Store[V]) evicted(key string, value V) {
	if s.onEvict != nil {
		s.onEvict(key, value)
	}
}
