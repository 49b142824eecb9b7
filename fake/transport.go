// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the packet transport.

package fake

import (
	"sync"

	"github.com/momentics/hioload-spead/api"
)

// Transport is a fake api.PacketTransport that records sent packets.
type Transport struct {
	mu         sync.Mutex
	sent       [][]byte
	closed     bool
	sendError  error
	closeError error
	gate       <-chan struct{}
}

// NewTransport creates a new fake transport with default settings.
func NewTransport() *Transport {
	return &Transport{
		sent: make([][]byte, 0),
	}
}

// SendPacket implements api.PacketTransport. Each packet is stored as one
// contiguous copy.
func (t *Transport) SendPacket(buffers [][]byte) error {
	t.mu.Lock()
	gate := t.gate
	t.mu.Unlock()
	if gate != nil {
		<-gate
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return api.ErrTransportClosed
	}

	if t.sendError != nil {
		return t.sendError
	}

	var pkt []byte
	for _, buf := range buffers {
		pkt = append(pkt, buf...)
	}
	t.sent = append(t.sent, pkt)
	return nil
}

// Close implements api.PacketTransport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closeError != nil {
		return t.closeError
	}

	t.closed = true
	return nil
}

// Features implements api.FeatureReporter.
func (t *Transport) Features() api.TransportFeatures {
	return api.TransportFeatures{ZeroCopy: false, Datagram: true, OS: []string{"fake"}}
}

// Closed reports whether Close has succeeded.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// SetSendError configures the transport to return an error on SendPacket.
func (t *Transport) SetSendError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendError = err
}

// SetCloseError configures the transport to return an error on Close.
func (t *Transport) SetCloseError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeError = err
}

// SetGate makes every SendPacket wait for a receive from gate first.
// Closing gate releases all senders; nil removes the gate.
func (t *Transport) SetGate(gate <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gate = gate
}

// GetSentPackets returns all packets sent so far.
func (t *Transport) GetSentPackets() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	sent := make([][]byte, len(t.sent))
	copy(sent, t.sent)
	return sent
}

// ClearSentPackets clears the recorded packets.
func (t *Transport) ClearSentPackets() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = t.sent[:0]
}
