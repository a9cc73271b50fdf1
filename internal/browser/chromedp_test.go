// internal/browser/chromedp_test.go
package browser

import (
	"context"
	"testing"
	"time"
)

func TestPropagateCancelFiresOnCallerDone(t *testing.T) {
	caller, cancelCaller := context.WithCancel(context.Background())
	defer cancelCaller()

	target, targetCancel := context.WithCancel(context.Background())
	stop := propagateCancel(caller, targetCancel)
	defer stop()

	cancelCaller()

	select {
	case <-target.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("target context not cancelled after caller cancellation")
	}
}

func TestPropagateCancelStopReleasesWatcher(t *testing.T) {
	caller, cancelCaller := context.WithCancel(context.Background())
	defer cancelCaller()

	target, targetCancel := context.WithCancel(context.Background())
	defer targetCancel()

	stop := propagateCancel(caller, targetCancel)
	stop()

	cancelCaller()
	// After stop the watcher is gone; give a stray goroutine a moment to
	// misbehave before asserting the target survived.
	time.Sleep(20 * time.Millisecond)
	if target.Err() != nil {
		t.Fatalf("target cancelled after stop: %v", target.Err())
	}
}

func TestSleepCtx(t *testing.T) {
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("expected full sleep to report true")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if sleepCtx(ctx, 10*time.Second) {
		t.Error("expected cancelled context to abort the sleep")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled sleep took %v, expected immediate return", elapsed)
	}
}
