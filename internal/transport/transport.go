// Package transport
// Author: momentics <momentics@gmail.com>
//
// Platform-independent facade and factory for packet transports.

package transport

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/momentics/hioload-spead/api"
)

// UDPConfig tunes the UDP transport.
type UDPConfig struct {
	// SendBufferSize sets SO_SNDBUF; zero keeps the OS default.
	SendBufferSize int
	Logger         *slog.Logger
}

// DefaultUDPConfig returns the settings used by streams unless overridden.
func DefaultUDPConfig() UDPConfig {
	return UDPConfig{SendBufferSize: 512 * 1024}
}

func (c UDPConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// NewUDPTransport connects a datagram socket to addr ("host:port").
func NewUDPTransport(addr string, cfg UDPConfig) (api.PacketTransport, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	return newUDPTransport(ua, cfg)
}

// TransportWrapper serializes access to a transport and allows the
// implementation to be swapped at runtime.
type TransportWrapper struct {
	impl api.PacketTransport
	mu   sync.RWMutex
}

// NewTransportWrapper wraps impl.
func NewTransportWrapper(impl api.PacketTransport) *TransportWrapper {
	return &TransportWrapper{impl: impl}
}

// SendPacket implements api.PacketTransport.
func (t *TransportWrapper) SendPacket(buffers [][]byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.impl.SendPacket(buffers)
}

// Close implements api.PacketTransport.
func (t *TransportWrapper) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.impl.Close()
}

// Features reports the wrapped implementation's capabilities, if any.
func (t *TransportWrapper) Features() api.TransportFeatures {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if fr, ok := t.impl.(api.FeatureReporter); ok {
		return fr.Features()
	}
	return api.TransportFeatures{}
}

// SetImplementation hot-swaps the underlying transport, closing the old one.
// The swap happens even when closing the old transport fails; that error is
// returned.
func (t *TransportWrapper) SetImplementation(newImpl api.PacketTransport) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var err error
	if t.impl != nil {
		if err = t.impl.Close(); err != nil {
			err = fmt.Errorf("close replaced transport: %w", err)
		}
	}
	t.impl = newImpl
	return err
}

// writerTransport writes packets back to back into an io.Writer.
type writerTransport struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewWriterTransport returns a transport that appends every packet to w,
// e.g. a capture file. Close closes w if it is an io.Closer.
func NewWriterTransport(w io.Writer) api.PacketTransport {
	return &writerTransport{w: w}
}

func (wt *writerTransport) SendPacket(buffers [][]byte) error {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	if wt.closed {
		return api.ErrTransportClosed
	}
	for _, b := range buffers {
		if _, err := wt.w.Write(b); err != nil {
			return fmt.Errorf("write packet: %w", err)
		}
	}
	return nil
}

func (wt *writerTransport) Close() error {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	if wt.closed {
		return nil
	}
	wt.closed = true
	if c, ok := wt.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (wt *writerTransport) Features() api.TransportFeatures {
	return api.TransportFeatures{ZeroCopy: true, OS: []string{"any"}}
}
