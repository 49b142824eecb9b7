// internal/transport/transport_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux UDP transport: one SendmsgBuffers call per packet, no coalescing.

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/momentics/hioload-spead/api"
	"golang.org/x/sys/unix"
)

// linuxUDPTransport: senders hold mu's read lock across the closed check and
// the syscall; Close takes the write lock before releasing fd.
type linuxUDPTransport struct {
	mu     sync.RWMutex
	fd     int
	closed bool
	log    *slog.Logger
}

// newUDPTransport creates a connected datagram socket.
func newUDPTransport(addr *net.UDPAddr, cfg UDPConfig) (api.PacketTransport, error) {
	family, sa := sockaddr(addr)
	fd, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	log := cfg.logger().With("component", "transport", "dest", addr.String())
	if cfg.SendBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, cfg.SendBufferSize); err != nil {
			log.Warn("cannot set send buffer size", "size", cfg.SendBufferSize, "err", err)
		}
	}
	if err := unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return &linuxUDPTransport{fd: fd, log: log}, nil
}

func sockaddr(addr *net.UDPAddr) (int, unix.Sockaddr) {
	if ip4 := addr.IP.To4(); ip4 != nil || addr.IP == nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return unix.AF_INET6, sa
}

// SendPacket sends all buffers as one datagram via SendmsgBuffers.
func (lt *linuxUDPTransport) SendPacket(buffers [][]byte) error {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	if lt.closed {
		return api.ErrTransportClosed
	}
	want := 0
	for _, b := range buffers {
		want += len(b)
	}
	for {
		sent, err := unix.SendmsgBuffers(lt.fd, buffers, nil, nil, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("SendmsgBuffers: %w", err)
		}
		if sent != want {
			return fmt.Errorf("partial send: %d/%d bytes", sent, want)
		}
		return nil
	}
}

// Close waits for in-flight sends and closes the socket. Later calls are
// no-ops.
func (lt *linuxUDPTransport) Close() error {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.closed {
		return nil
	}
	lt.closed = true
	return unix.Close(lt.fd)
}

// Features returns transport capabilities.
func (lt *linuxUDPTransport) Features() api.TransportFeatures {
	return DetectTransportFeatures()
}
