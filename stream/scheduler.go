// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package stream

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Scheduler dispatches a unit of work, optionally bounding how many run
// concurrently. It is the composable primitive behind ObserveOn and the
// separateThread hop performed by LocalDataSet, per spec §9 ("Scheduler
// hop"): a subscriber's callback should not run on the caller's thread, which
// may be a UI or RPC thread.
type Scheduler interface {
	// Schedule runs fn, possibly on another goroutine. Implementations must
	// not run fn if ctx is already done.
	Schedule(ctx context.Context, fn func())
}

// inlineScheduler runs fn synchronously on the calling goroutine. Used when
// separateThread is false.
type inlineScheduler struct{}

// Inline is a Scheduler that executes work synchronously, inline.
var Inline Scheduler = inlineScheduler{}

func (inlineScheduler) Schedule(ctx context.Context, fn func()) {
	if ctx.Err() != nil {
		return
	}
	fn()
}

// Pool is a bounded-parallelism compute scheduler backed by a weighted
// semaphore, the shared "compute pool" of spec §5. A zero-value Pool is
// invalid; use NewPool.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a Pool with the given maximum parallelism. size <= 0
// defaults to runtime.NumCPU(), matching spec §6's computePoolSize default.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Schedule runs fn on a pool goroutine once a slot is available, blocking the
// caller until fn returns (or ctx is cancelled). Running fn on a separate
// goroutine still hops it off of whatever thread called Subscribe, and
// blocking the caller of Schedule means a producer that calls Schedule once
// per item, in order, gets its items executed on the pool in that same
// order — the "preserves per-subscription order" guarantee of observeOn.
func (p *Pool) Schedule(ctx context.Context, fn func()) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return // ctx cancelled while waiting for a free slot
	}
	defer p.sem.Release(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// fn keeps running cooperatively; we stop waiting on it per spec §5
		// ("cancellation is cooperative").
	}
}
