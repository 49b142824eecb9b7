// Package api
// Author: momentics
//
// Bounded hand-off ring between producer and consumer goroutines.

package api

import "context"

// Ring is a bounded FIFO with non-blocking push and blocking pop.
type Ring[T any] interface {
	// TryPush appends value, failing with ErrRingFull or ErrRingStopped.
	TryPush(value T) error
	// TryPop removes the oldest value, failing with ErrRingEmpty or ErrRingStopped.
	TryPop() (T, error)
	// Pop blocks until a value is available or the ring is stopped and drained.
	Pop() (T, error)
	// PopContext is Pop that also gives up when ctx is done.
	PopContext(ctx context.Context) (T, error)
	// Stop marks the end of production. Buffered values remain poppable.
	Stop()
	// Len returns current number of items.
	Len() int
	// Cap returns buffer capacity.
	Cap() int
}
