// internal/cache/cache_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"tracklift/internal/logging"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore(10, time.Minute)
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, ok := store.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(entry.Payload) != "payload" {
		t.Errorf("unexpected payload %q", entry.Payload)
	}

	if _, ok := store.Get(ctx, "absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(10, time.Hour)
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "short", []byte("x"), 30*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok := store.Get(ctx, "short"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := store.Get(ctx, "short"); ok {
		t.Error("expected miss after TTL elapsed")
	}
}

func TestMemoryStoreBoundedEviction(t *testing.T) {
	store := NewMemoryStore(2, time.Hour)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, "a", []byte("1"), time.Minute)
	store.Set(ctx, "b", []byte("2"), time.Hour)
	store.Set(ctx, "c", []byte("3"), time.Hour)

	stats := store.Stats()
	if stats.Entries != 2 {
		t.Errorf("expected 2 entries after eviction, got %d", stats.Entries)
	}
	// "a" had the nearest deadline, so it should be the victim.
	if _, ok := store.Get(ctx, "a"); ok {
		t.Error("expected soonest-expiring entry to be evicted")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore(10, 20*time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, "stale", []byte("x"), 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	if store.Stats().Entries != 0 {
		t.Error("expected periodic sweep to remove expired entry")
	}
}

func TestTieredRepopulatesFastTier(t *testing.T) {
	fast := NewMemoryStore(10, time.Hour)
	slow := NewMemoryStore(10, time.Hour)
	tiered := NewTiered(fast, slow, logging.NewNop())
	defer tiered.Close()
	ctx := context.Background()

	// Seed only the slow tier, simulating a fast-tier restart.
	if err := slow.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, ok := tiered.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit via slow tier")
	}
	if string(entry.Payload) != "v" {
		t.Errorf("unexpected payload %q", entry.Payload)
	}

	if _, ok := fast.Get(ctx, "k"); !ok {
		t.Error("expected fast tier to be repopulated after slow-tier hit")
	}
}

func TestTieredClearAndInvalidate(t *testing.T) {
	fast := NewMemoryStore(10, time.Hour)
	slow := NewMemoryStore(10, time.Hour)
	tiered := NewTiered(fast, slow, logging.NewNop())
	defer tiered.Close()
	ctx := context.Background()

	tiered.Set(ctx, "a", []byte("1"), time.Minute)
	tiered.Set(ctx, "b", []byte("2"), time.Minute)

	tiered.Invalidate(ctx, "a")
	if _, ok := tiered.Get(ctx, "a"); ok {
		t.Error("expected invalidated key to miss in both tiers")
	}

	tiered.Clear(ctx)
	if _, ok := tiered.Get(ctx, "b"); ok {
		t.Error("expected clear to empty both tiers")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir() + "/cache.db")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	entry, ok := store.Get(ctx, "k")
	if !ok || string(entry.Payload) != "v" {
		t.Fatalf("expected hit with payload v, got ok=%v payload=%q", ok, entry.Payload)
	}

	if err := store.Set(ctx, "gone", []byte("v"), 1*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(2 * time.Second)
	if _, ok := store.Get(ctx, "gone"); ok {
		t.Error("expected ttl=1s entry to miss after 2s")
	}
}
