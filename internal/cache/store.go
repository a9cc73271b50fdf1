// internal/cache/store.go
// Package cache provides the two-tier TTL store for scrape and metadata
// results. A bounded in-memory tier answers most lookups; an optional
// longer-retention tier (Redis or SQLite) is consulted on miss and
// repopulates the memory tier on hit. Backend I/O failures degrade to a
// miss or no-op and are logged, never surfaced to the caller.
package cache

import (
	"context"
	"time"
)

// Entry is a stored payload with its creation time and TTL. An entry is
// expired when now - CreatedAt exceeds TTL.
type Entry struct {
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether the entry's TTL has elapsed at the given time.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Store is the contract shared by both tiers.
type Store interface {
	// Get returns the entry for key, or ok=false on miss or expiry.
	Get(ctx context.Context, key string) (Entry, bool)

	// Set stores payload under key with the given TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Invalidate removes a single key.
	Invalidate(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Stats returns store counters.
	Stats() Stats

	// Close releases backend resources.
	Close() error
}

// Stats holds cache observability counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}
