//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable UDP transport: packets are coalesced into one reusable buffer
// because net.UDPConn has no scatter-gather datagram write.

package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/momentics/hioload-spead/api"
)

type netUDPTransport struct {
	mu     sync.Mutex
	conn   *net.UDPConn
	buf    []byte
	closed bool
}

func newUDPTransport(addr *net.UDPAddr, cfg UDPConfig) (api.PacketTransport, error) {
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if cfg.SendBufferSize > 0 {
		if err := conn.SetWriteBuffer(cfg.SendBufferSize); err != nil {
			cfg.logger().Warn("cannot set send buffer size",
				"component", "transport", "size", cfg.SendBufferSize, "err", err)
		}
	}
	return &netUDPTransport{conn: conn}, nil
}

func (nt *netUDPTransport) SendPacket(buffers [][]byte) error {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	if nt.closed {
		return api.ErrTransportClosed
	}
	nt.buf = nt.buf[:0]
	for _, b := range buffers {
		nt.buf = append(nt.buf, b...)
	}
	if _, err := nt.conn.Write(nt.buf); err != nil {
		return fmt.Errorf("write datagram: %w", err)
	}
	return nil
}

func (nt *netUDPTransport) Close() error {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	if nt.closed {
		return nil
	}
	nt.closed = true
	return nt.conn.Close()
}

func (nt *netUDPTransport) Features() api.TransportFeatures {
	return DetectTransportFeatures()
}
