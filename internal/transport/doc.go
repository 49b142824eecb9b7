// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Packet transports for send streams. The Linux UDP transport hands each
// scatter-gather packet to the kernel in one sendmsg call; other platforms
// coalesce into a reusable buffer. All critical interfaces are designed for
// composability and downstream testability.

package transport
