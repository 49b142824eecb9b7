// File: pool/waiter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wait strategies for Ring consumers. A Waiter is bound to the ring mutex
// once; Wait is always called with that mutex held and returns with it held.

package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Waiter parks consumers until producers signal them.
type Waiter interface {
	// Bind attaches the waiter to the lock guarding the waited-on state.
	Bind(l sync.Locker)
	// Wait releases the lock, blocks until woken or ctx is done, and
	// reacquires the lock. Spurious wake-ups are allowed.
	Wait(ctx context.Context) error
	// Signal wakes at least one waiter.
	Signal()
	// Broadcast wakes all waiters.
	Broadcast()
}

// CondWaiter is the default Waiter, built on sync.Cond.
type CondWaiter struct {
	l    sync.Locker
	cond *sync.Cond
}

// NewCondWaiter returns an unbound CondWaiter.
func NewCondWaiter() *CondWaiter { return &CondWaiter{} }

func (w *CondWaiter) Bind(l sync.Locker) {
	w.l = l
	w.cond = sync.NewCond(l)
}

func (w *CondWaiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ctx.Done() == nil {
		w.cond.Wait()
		return nil
	}
	// Broadcasting under the lock means cancellation cannot slip in between
	// the ctx check above and cond.Wait parking.
	stop := context.AfterFunc(ctx, func() {
		w.l.Lock()
		w.cond.Broadcast()
		w.l.Unlock()
	})
	w.cond.Wait()
	stop()
	return ctx.Err()
}

func (w *CondWaiter) Signal()    { w.cond.Signal() }
func (w *CondWaiter) Broadcast() { w.cond.Broadcast() }

// BackoffWaiter polls with an adaptive sleep instead of parking on a
// condition variable. Signals only reset the backoff.
type BackoffWaiter struct {
	l                  sync.Locker
	minDelay, maxDelay time.Duration
	backoffNs          atomic.Int64
}

// NewBackoffWaiter returns a waiter sleeping between minDelay and maxDelay.
func NewBackoffWaiter(minDelay, maxDelay time.Duration) *BackoffWaiter {
	if minDelay <= 0 {
		minDelay = time.Microsecond
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	w := &BackoffWaiter{minDelay: minDelay, maxDelay: maxDelay}
	w.backoffNs.Store(int64(minDelay))
	return w
}

func (w *BackoffWaiter) Bind(l sync.Locker) { w.l = l }

func (w *BackoffWaiter) Wait(ctx context.Context) error {
	backoff := time.Duration(w.backoffNs.Load())
	w.l.Unlock()
	defer w.l.Lock()

	t := time.NewTimer(backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	w.backoffNs.Store(int64(min(backoff*2, w.maxDelay)))
	return nil
}

func (w *BackoffWaiter) Signal()    { w.backoffNs.Store(int64(w.minDelay)) }
func (w *BackoffWaiter) Broadcast() { w.backoffNs.Store(int64(w.minDelay)) }
