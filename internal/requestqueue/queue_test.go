// internal/requestqueue/queue_test.go
package requestqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueBoundsConcurrency(t *testing.T) {
	q := New(2, time.Millisecond)

	var active, peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := q.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer q.Release()

			now := active.Add(1)
			for {
				current := peak.Load()
				if now <= current || peak.CompareAndSwap(current, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 in flight, observed %d", peak.Load())
	}
}

func TestQueueEnforcesMinInterval(t *testing.T) {
	q := New(4, 30*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := q.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		q.Release()
	}
	elapsed := time.Since(start)

	// First dispatch is immediate, the next two wait one interval each.
	if elapsed < 50*time.Millisecond {
		t.Errorf("expected pacing of at least ~60ms, got %v", elapsed)
	}
}

func TestQueueAcquireHonorsContext(t *testing.T) {
	q := New(1, time.Millisecond)
	if err := q.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := q.Acquire(ctx); err == nil {
		t.Error("expected context deadline error while queue is full")
	}
	q.Release()

	if got := q.Stats().InFlight; got != 0 {
		t.Errorf("expected 0 in flight after release, got %d", got)
	}
}
