// File: pool/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded ring buffer for cross-goroutine hand-off. Push never blocks: a full
// ring is reported to the caller. Pop blocks until data arrives or the ring
// is stopped and drained. All state is guarded by one mutex.

package pool

import (
	"context"
	"sync"

	"github.com/momentics/hioload-spead/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*Ring[any])(nil)

type ringConfig struct {
	waiter Waiter
}

// RingOption customizes a Ring.
type RingOption func(*ringConfig)

// WithWaiter replaces the default CondWaiter.
func WithWaiter(w Waiter) RingOption {
	return func(c *ringConfig) { c.waiter = w }
}

// Ring is a fixed-capacity FIFO with non-blocking push, blocking pop and
// graceful stop.
type Ring[T any] struct {
	mu      sync.Mutex
	waiter  Waiter
	slots   []T
	head    int // first slot with data
	tail    int // first free slot
	len     int
	stopped bool
}

// NewRing allocates a ring holding up to capacity values.
func NewRing[T any](capacity int, opts ...RingOption) *Ring[T] {
	if capacity <= 0 {
		panic("ring buffer capacity must be positive")
	}
	cfg := ringConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.waiter == nil {
		cfg.waiter = NewCondWaiter()
	}
	r := &Ring[T]{
		waiter: cfg.waiter,
		slots:  make([]T, capacity),
	}
	r.waiter.Bind(&r.mu)
	return r
}

func (r *Ring[T]) next(idx int) int {
	idx++
	if idx == len(r.slots) {
		idx = 0
	}
	return idx
}

// TryPush appends value. It fails with api.ErrRingStopped after Stop and
// with api.ErrRingFull when the ring is at capacity.
func (r *Ring[T]) TryPush(value T) error {
	return r.TryEmplace(func(slot *T) { *slot = value })
}

// TryEmplace lets build construct the value directly in the tail slot.
// build runs with the ring locked and must not call back into the ring.
func (r *Ring[T]) TryEmplace(build func(slot *T)) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return api.ErrRingStopped
	}
	if r.len == len(r.slots) {
		r.mu.Unlock()
		return api.ErrRingFull
	}
	build(&r.slots[r.tail])
	r.tail = r.next(r.tail)
	r.len++
	r.mu.Unlock()
	// Signal after unlocking so the woken consumer does not immediately
	// block on the mutex.
	r.waiter.Signal()
	return nil
}

// emptyLocked reports whether there is nothing to pop, failing with
// api.ErrRingStopped once the ring is stopped and drained.
func (r *Ring[T]) emptyLocked() (bool, error) {
	if r.len == 0 && r.stopped {
		return true, api.ErrRingStopped
	}
	return r.len == 0, nil
}

// popLocked removes the head value. The slot is zeroed so the ring does not
// keep values it no longer owns reachable.
func (r *Ring[T]) popLocked() T {
	var zero T
	v := r.slots[r.head]
	r.slots[r.head] = zero
	r.head = r.next(r.head)
	r.len--
	return v
}

// TryPop removes the oldest value without blocking.
func (r *Ring[T]) TryPop() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	empty, err := r.emptyLocked()
	if err != nil {
		var zero T
		return zero, err
	}
	if empty {
		var zero T
		return zero, api.ErrRingEmpty
	}
	return r.popLocked(), nil
}

// Pop blocks until a value is available. It fails with api.ErrRingStopped
// only when the ring has been stopped and fully drained.
func (r *Ring[T]) Pop() (T, error) {
	return r.PopContext(context.Background())
}

// PopContext is Pop that also returns ctx.Err() when ctx is done first.
func (r *Ring[T]) PopContext(ctx context.Context) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		empty, err := r.emptyLocked()
		if err != nil {
			var zero T
			return zero, err
		}
		if !empty {
			return r.popLocked(), nil
		}
		if err := r.waiter.Wait(ctx); err != nil {
			// A push may have signalled this waiter; hand the wake-up on.
			if r.len > 0 {
				r.waiter.Signal()
			}
			var zero T
			return zero, err
		}
	}
}

// Stop marks the end of production and wakes all consumers. Values already
// in the ring remain poppable. Safe to call more than once.
func (r *Ring[T]) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.waiter.Broadcast()
	r.mu.Unlock()
}

// Stopped reports whether Stop has been called.
func (r *Ring[T]) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// Len returns number of items in the buffer.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.len
}

// Cap returns buffer capacity.
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}
