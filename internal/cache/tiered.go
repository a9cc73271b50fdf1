// internal/cache/tiered.go
package cache

import (
	"context"
	"time"

	"tracklift/internal/logging"
)

// Tiered combines the fast memory tier with an optional persistent tier.
// Lookups hit memory first; on miss the persistent tier is consulted and,
// on hit, used to repopulate memory. Persistent-tier failures are logged
// and degrade to a miss or no-op.
type Tiered struct {
	fast   Store
	slow   Store // may be nil
	logger logging.Logger
}

// NewTiered wires the two tiers together. slow may be nil for a
// memory-only configuration.
func NewTiered(fast, slow Store, logger logging.Logger) *Tiered {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tiered{fast: fast, slow: slow, logger: logger}
}

// Get implements Store.
func (t *Tiered) Get(ctx context.Context, key string) (Entry, bool) {
	if entry, ok := t.fast.Get(ctx, key); ok {
		return entry, true
	}
	if t.slow == nil {
		return Entry{}, false
	}

	entry, ok := t.slow.Get(ctx, key)
	if !ok {
		return Entry{}, false
	}

	// Repopulate the fast tier with the remaining lifetime.
	remaining := entry.TTL - time.Since(entry.CreatedAt)
	if remaining > 0 {
		if err := t.fast.Set(ctx, key, entry.Payload, remaining); err != nil {
			t.logger.Warnf("cache: failed to repopulate fast tier for %s: %v", key, err)
		}
	}
	return entry, true
}

// Set implements Store. Both tiers receive the entry; a persistent-tier
// failure does not fail the call.
func (t *Tiered) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := t.fast.Set(ctx, key, payload, ttl); err != nil {
		t.logger.Warnf("cache: memory tier set failed for %s: %v", key, err)
	}
	if t.slow != nil {
		if err := t.slow.Set(ctx, key, payload, ttl); err != nil {
			t.logger.Warnf("cache: persistent tier set failed for %s: %v", key, err)
		}
	}
	return nil
}

// Invalidate implements Store.
func (t *Tiered) Invalidate(ctx context.Context, key string) error {
	if err := t.fast.Invalidate(ctx, key); err != nil {
		t.logger.Warnf("cache: memory tier invalidate failed for %s: %v", key, err)
	}
	if t.slow != nil {
		if err := t.slow.Invalidate(ctx, key); err != nil {
			t.logger.Warnf("cache: persistent tier invalidate failed for %s: %v", key, err)
		}
	}
	return nil
}

// Clear implements Store.
func (t *Tiered) Clear(ctx context.Context) error {
	if err := t.fast.Clear(ctx); err != nil {
		t.logger.Warnf("cache: memory tier clear failed: %v", err)
	}
	if t.slow != nil {
		if err := t.slow.Clear(ctx); err != nil {
			t.logger.Warnf("cache: persistent tier clear failed: %v", err)
		}
	}
	return nil
}

// Stats implements Store, reporting the combined view of both tiers.
func (t *Tiered) Stats() Stats {
	stats := t.fast.Stats()
	if t.slow != nil {
		slow := t.slow.Stats()
		stats.Hits += slow.Hits
		stats.Misses += slow.Misses
		stats.Evictions += slow.Evictions
	}
	return stats
}

// Close implements Store.
func (t *Tiered) Close() error {
	err := t.fast.Close()
	if t.slow != nil {
		if slowErr := t.slow.Close(); err == nil {
			err = slowErr
		}
	}
	return err
}
