// File: send/packet.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Packet is a zero-copy scatter-gather view of one wire packet.

package send

import "io"

// Packet lists the segments whose concatenation is one wire packet:
// the header first, then borrowed item slices, then zero padding if any.
// A Packet does not own memory and is invalidated by the next call to
// PacketGenerator.NextPacket.
type Packet struct {
	Buffers [][]byte
}

// Empty reports whether this is the terminal packet.
func (p Packet) Empty() bool { return len(p.Buffers) == 0 }

// Len returns the wire size in bytes.
func (p Packet) Len() int {
	n := 0
	for _, b := range p.Buffers {
		n += len(b)
	}
	return n
}

// Header returns the header segment, or nil for the terminal packet.
func (p Packet) Header() []byte {
	if p.Empty() {
		return nil
	}
	return p.Buffers[0]
}

// AppendTo appends the wire bytes to dst.
func (p Packet) AppendTo(dst []byte) []byte {
	for _, b := range p.Buffers {
		dst = append(dst, b...)
	}
	return dst
}

// Clone returns an owned contiguous copy that survives later generator calls.
func (p Packet) Clone() []byte {
	return p.AppendTo(make([]byte, 0, p.Len()))
}

// WriteTo writes the packet to w.
func (p Packet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, b := range p.Buffers {
		n, err := w.Write(b)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
