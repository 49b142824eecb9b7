// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-size byte buffer pool, used for packet header buffers.

package pool

import "sync"

// SyncPool is a typed sync.Pool.
type SyncPool[T any] struct {
	pool sync.Pool
}

// NewSyncPool returns a pool that calls creator when empty.
func NewSyncPool[T any](creator func() T) *SyncPool[T] {
	sp := &SyncPool[T]{}
	sp.pool.New = func() any { return creator() }
	return sp
}

func (sp *SyncPool[T]) Get() T    { return sp.pool.Get().(T) }
func (sp *SyncPool[T]) Put(obj T) { sp.pool.Put(obj) }

// BytePool hands out buffers of one fixed size.
type BytePool struct {
	pool *SyncPool[*[]byte]
	size int
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	return &BytePool{
		pool: NewSyncPool(func() *[]byte {
			b := make([]byte, size)
			return &b
		}),
		size: size,
	}
}

// Size returns the buffer size served by the pool.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer of Size bytes.
func (b *BytePool) GetBuffer() []byte {
	return (*b.pool.Get())[:b.size]
}

// PutBuffer returns a buffer to the pool. Buffers of a different
// capacity are left to the GC.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	buf = buf[:b.size]
	b.pool.Put(&buf)
}
