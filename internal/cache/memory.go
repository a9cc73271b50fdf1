// internal/cache/memory.go
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is the fast ephemeral tier: a bounded map with TTL eviction
// and a periodic sweep. The mutex guards only map mutation and is never
// held across I/O.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	maxEntries int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	sweepStop chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a memory tier holding at most maxEntries keys,
// sweeping expired entries every sweepInterval.
func NewMemoryStore(maxEntries int, sweepInterval time.Duration) *MemoryStore {
	if maxEntries < 1 {
		maxEntries = 1000
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	s := &MemoryStore{
		entries:    make(map[string]Entry),
		maxEntries: maxEntries,
		sweepStop:  make(chan struct{}),
	}

	go s.sweepLoop(sweepInterval)
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return Entry{}, false
	}
	if entry.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		s.misses.Add(1)
		s.evictions.Add(1)
		return Entry{}, false
	}

	s.hits.Add(1)
	return entry, true
}

// Set implements Store. When the store is full, the entry closest to
// expiry is evicted to make room.
func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	entry := Entry{Payload: payload, CreatedAt: time.Now(), TTL: ttl}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictSoonestLocked()
	}
	s.entries[key] = entry
	return nil
}

// evictSoonestLocked removes the entry whose deadline is nearest.
func (s *MemoryStore) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	for key, entry := range s.entries {
		deadline := entry.CreatedAt.Add(entry.TTL)
		if victim == "" || deadline.Before(soonest) {
			victim = key
			soonest = deadline
		}
	}
	if victim != "" {
		delete(s.entries, victim)
		s.evictions.Add(1)
	}
}

// Invalidate implements Store.
func (s *MemoryStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]Entry)
	s.mu.Unlock()
	return nil
}

// Stats implements Store.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	entries := len(s.entries)
	s.mu.RUnlock()

	return Stats{
		Entries:   entries,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}

// Close stops the sweep goroutine.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.sweepStop) })
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.sweepStop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
			s.evictions.Add(1)
		}
	}
}
