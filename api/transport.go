// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the packet transport abstraction used by send streams.

package api

// PacketTransport sends one datagram described as a scatter-gather list.
// The concatenation of buffers is the exact wire packet. Buffers are only
// valid for the duration of the call.
type PacketTransport interface {
	SendPacket(buffers [][]byte) error
	Close() error
}

// TransportFeatures describes what a transport implementation can do.
type TransportFeatures struct {
	ZeroCopy bool // scatter-gather without coalescing
	Datagram bool // one SendPacket call is one datagram
	OS       []string
}

// FeatureReporter is implemented by transports that advertise capabilities.
type FeatureReporter interface {
	Features() TransportFeatures
}
