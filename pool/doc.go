// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory and hand-off layer for hioload-spead.
// Implements the bounded heap ring with pluggable wait strategies and
// sync.Pool backed header buffers.
// See ring.go, waiter.go and bytepool.go for implementation details.
package pool
