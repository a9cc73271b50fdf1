// internal/requestqueue/queue.go
// Package requestqueue bounds outbound request concurrency and pacing.
// Every HTTP request and browser navigation, regardless of which strategy
// backend issues it, acquires a slot here first.
package requestqueue

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Queue enforces a maximum number of in-flight requests and a minimum
// interval between dispatches.
type Queue struct {
	limiter    *rate.Limiter
	slots      chan struct{}
	inFlight   atomic.Int64
	dispatched atomic.Int64
}

// New creates a queue allowing at most maxConcurrency requests in flight
// and at most one dispatch per minInterval.
func New(maxConcurrency int, minInterval time.Duration) *Queue {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Queue{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		slots:   make(chan struct{}, maxConcurrency),
	}
}

// Acquire blocks until a concurrency slot is free and the pacing limiter
// admits a dispatch, or the context is done. Callers must Release exactly
// once per successful Acquire.
func (q *Queue) Acquire(ctx context.Context) error {
	select {
	case q.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := q.limiter.Wait(ctx); err != nil {
		<-q.slots
		return err
	}

	q.inFlight.Add(1)
	q.dispatched.Add(1)
	return nil
}

// Release frees a concurrency slot.
func (q *Queue) Release() {
	q.inFlight.Add(-1)
	<-q.slots
}

// Stats describes queue activity.
type Stats struct {
	InFlight   int64 `json:"in_flight"`
	Dispatched int64 `json:"dispatched"`
}

// Stats returns a snapshot of queue activity.
func (q *Queue) Stats() Stats {
	return Stats{
		InFlight:   q.inFlight.Load(),
		Dispatched: q.dispatched.Load(),
	}
}
