// File: send/backlog.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Backlog is a caller-side overflow queue in front of a Stream. Heaps that
// find the ring full wait here in FIFO order and are moved into the ring on
// later Submit or Flush calls.

package send

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-spead/api"
)

// drainPoll is the pause between Flush attempts in Drain.
const drainPoll = 200 * time.Microsecond

// HeapSender accepts heaps without blocking. *Stream implements it.
type HeapSender interface {
	TrySendHeap(h *Heap) error
}

// Backlog queues heaps rejected with api.ErrRingFull.
type Backlog struct {
	mu      sync.Mutex
	sender  HeapSender
	q       *queue.Queue
	limit   int
	dropped int64
	onDrop  func(*Heap)
}

// NewBacklog returns a backlog holding at most limit heaps. A limit of zero
// or less means unbounded.
func NewBacklog(sender HeapSender, limit int) *Backlog {
	return &Backlog{
		sender: sender,
		q:      queue.New(),
		limit:  limit,
	}
}

// OnDrop registers fn to be called, with the backlog locked, for every heap
// discarded because the backlog was at its limit.
func (b *Backlog) OnDrop(fn func(h *Heap)) {
	b.mu.Lock()
	b.onDrop = fn
	b.mu.Unlock()
}

// Submit hands h to the sender, queueing it when the sender is full or
// older heaps are still waiting. When the backlog is at its limit the oldest
// queued heap is dropped. Only api.ErrRingStopped and other non-capacity
// errors are returned.
func (b *Backlog) Submit(h *Heap) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.flushLocked(); err != nil {
		return err
	}
	if b.q.Length() == 0 {
		err := b.sender.TrySendHeap(h)
		if err == nil {
			return nil
		}
		if !errors.Is(err, api.ErrRingFull) {
			return err
		}
	}
	if b.limit > 0 && b.q.Length() >= b.limit {
		old := b.q.Remove().(*Heap)
		b.dropped++
		if b.onDrop != nil {
			b.onDrop(old)
		}
	}
	b.q.Add(h)
	return nil
}

// Flush moves queued heaps to the sender until it is full or the backlog is
// empty, and returns how many were moved.
func (b *Backlog) Flush() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

func (b *Backlog) flushLocked() (int, error) {
	moved := 0
	for b.q.Length() > 0 {
		h := b.q.Peek().(*Heap)
		if err := b.sender.TrySendHeap(h); err != nil {
			if errors.Is(err, api.ErrRingFull) {
				return moved, nil
			}
			return moved, err
		}
		b.q.Remove()
		moved++
	}
	return moved, nil
}

// Drain flushes repeatedly until the backlog is empty or ctx is done.
func (b *Backlog) Drain(ctx context.Context) error {
	t := time.NewTimer(drainPoll)
	defer t.Stop()
	for {
		if _, err := b.Flush(); err != nil {
			return err
		}
		if b.Len() == 0 {
			return nil
		}
		t.Reset(drainPoll)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Len returns the number of queued heaps.
func (b *Backlog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.q.Length()
}

// Dropped returns how many heaps were discarded at the limit.
func (b *Backlog) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
