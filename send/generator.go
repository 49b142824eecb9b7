// File: send/generator.go
// Package send implements heap fragmentation into SPEAD packets.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PacketGenerator is a single-use cursor over one heap. Each NextPacket call
// writes a header into a generator-owned buffer and references item payload
// in place. It performs no locking and must be driven by one goroutine.

package send

import (
	"encoding/binary"

	"github.com/momentics/hioload-spead/api"
	"github.com/momentics/hioload-spead/protocol"
)

// GeneratorOption customizes a PacketGenerator.
type GeneratorOption func(*PacketGenerator)

// WithHeaderBuffer supplies the buffer headers are written into. It is used
// if its capacity is at least HeaderBufferSize(maxPacketSize).
func WithHeaderBuffer(buf []byte) GeneratorOption {
	return func(g *PacketGenerator) {
		g.header = buf
	}
}

// HeaderBufferSize returns the largest header a generator can write for
// the given packet size.
func HeaderBufferSize(maxPacketSize int) int {
	if maxPacketSize < protocol.MinPacketSize {
		return protocol.PrefixSize
	}
	return protocol.PrefixSize + protocol.PointerSize*maxItemPointers(maxPacketSize)
}

func maxItemPointers(maxPacketSize int) int {
	return min((maxPacketSize-(protocol.PrefixSize+8))/protocol.PointerSize,
		protocol.MaxPointers-protocol.MandatoryPointers)
}

// PacketGenerator splits one heap into packets of at most maxPacketSize bytes.
type PacketGenerator struct {
	heap             *Heap
	enc              protocol.PointerEncoder
	maxPacketSize    int
	maxImmediateSize int
	maxItemPointers  int
	payloadSize      uint64

	nextItemPointer int    // next item whose pointer is unsent
	nextItem        int    // next item whose payload is unsent
	nextItemOffset  int    // bytes of nextItem already sent
	nextAddress     uint64 // heap-global address of the next addressed item
	payloadOffset   uint64 // payload bytes emitted so far

	header  []byte
	padding []byte
	bufs    [][]byte
}

// NewPacketGenerator prepares h for transmission. It fails only when
// maxPacketSize cannot hold the prefix, one item pointer and 8 payload bytes,
// or when heapAddressBits is not a supported width.
func NewPacketGenerator(h *Heap, heapAddressBits, maxPacketSize int, opts ...GeneratorOption) (*PacketGenerator, error) {
	if maxPacketSize < protocol.MinPacketSize {
		return nil, api.ConfigError(api.ErrPacketSizeTooSmall).
			WithContext("max_packet_size", maxPacketSize).
			WithContext("min_packet_size", protocol.MinPacketSize)
	}
	enc, err := protocol.NewPointerEncoder(heapAddressBits)
	if err != nil {
		return nil, err
	}
	g := &PacketGenerator{
		heap:             h,
		enc:              enc,
		maxPacketSize:    maxPacketSize,
		maxImmediateSize: enc.AddressBytes(),
		maxItemPointers:  maxItemPointers(maxPacketSize),
	}
	for _, opt := range opts {
		opt(g)
	}

	var addressedBytes uint64
	for i := range h.items {
		if g.addressed(&h.items[i]) {
			addressedBytes += uint64(len(h.items[i].Data))
		}
	}
	// Every packet must carry payload so receivers can tell packets apart
	// by offset, including packets that exist only for item pointers.
	itemPackets := (len(h.items) + g.maxItemPointers - 1) / g.maxItemPointers
	g.payloadSize = max(addressedBytes, uint64(itemPackets)*8)
	if pad := g.payloadSize - addressedBytes; pad > 0 {
		g.padding = make([]byte, min(pad, uint64(maxPacketSize-protocol.PrefixSize)))
	}

	need := protocol.PrefixSize + protocol.PointerSize*min(g.maxItemPointers, len(h.items))
	if cap(g.header) < need {
		g.header = make([]byte, need)
	}
	g.header = g.header[:cap(g.header)]
	g.bufs = make([][]byte, 0, 4)
	return g, nil
}

// addressed reports whether the item travels in the payload rather than
// inside its pointer.
func (g *PacketGenerator) addressed(it *Item) bool {
	return !it.Inline && len(it.Data) > g.maxImmediateSize
}

// PayloadSize returns the heap payload length announced in every packet.
func (g *PacketGenerator) PayloadSize() uint64 { return g.payloadSize }

// MaxItemPointersPerPacket returns how many application pointers fit in a packet.
func (g *PacketGenerator) MaxItemPointersPerPacket() int { return g.maxItemPointers }

// Done reports whether all packets have been produced.
func (g *PacketGenerator) Done() bool { return g.payloadOffset >= g.payloadSize }

// NextPacket returns the next packet, or an empty packet once the heap is
// exhausted. The result is only valid until the next call.
func (g *PacketGenerator) NextPacket() Packet {
	if g.Done() {
		return Packet{}
	}
	items := g.heap.items
	n := min(g.maxItemPointers, len(items)-g.nextItemPointer)
	// Hold back 8 bytes for each packet still needed to carry pointers, so
	// the payload cannot run out while pointers are unsent.
	left := len(items) - g.nextItemPointer - n
	reserve := uint64((left+g.maxItemPointers-1)/g.maxItemPointers) * 8
	length := min(g.payloadSize-g.payloadOffset-reserve,
		uint64(g.maxPacketSize-protocol.PrefixSize-protocol.PointerSize*n))

	hdr := g.header[:protocol.PrefixSize+protocol.PointerSize*n]
	protocol.EncodePrefix(hdr, g.enc.HeapAddressBits(), n+4)
	binary.BigEndian.PutUint64(hdr[8:], g.enc.EncodeImmediate(protocol.HeapCntID, g.heap.cnt))
	binary.BigEndian.PutUint64(hdr[16:], g.enc.EncodeImmediate(protocol.HeapLengthID, g.payloadSize))
	binary.BigEndian.PutUint64(hdr[24:], g.enc.EncodeImmediate(protocol.PayloadOffsetID, g.payloadOffset))
	binary.BigEndian.PutUint64(hdr[32:], g.enc.EncodeImmediate(protocol.PayloadLengthID, length))

	off := protocol.PrefixSize
	for i := 0; i < n; i++ {
		it := &items[g.nextItemPointer]
		g.nextItemPointer++
		var word uint64
		switch {
		case it.Inline:
			word = g.enc.EncodeImmediate(it.ID, it.Value)
		case len(it.Data) <= g.maxImmediateSize:
			word = g.enc.EncodeImmediate(it.ID, protocol.ImmediateFromBytes(it.Data))
		default:
			word = g.enc.EncodeAddress(it.ID, g.nextAddress)
			g.nextAddress += uint64(len(it.Data))
		}
		binary.BigEndian.PutUint64(hdr[off:], word)
		off += protocol.PointerSize
	}
	g.bufs = append(g.bufs[:0], hdr)

	g.payloadOffset += length
	remaining := int(length)
	for remaining > 0 {
		switch {
		case g.nextItem == len(items):
			g.bufs = append(g.bufs, g.padding[:remaining])
			remaining = 0
		case !g.addressed(&items[g.nextItem]):
			g.nextItem++
			g.nextItemOffset = 0
		default:
			data := items[g.nextItem].Data
			chunk := min(len(data)-g.nextItemOffset, remaining)
			g.bufs = append(g.bufs, data[g.nextItemOffset:g.nextItemOffset+chunk])
			g.nextItemOffset += chunk
			if g.nextItemOffset == len(data) {
				g.nextItem++
				g.nextItemOffset = 0
			}
			remaining -= chunk
		}
	}
	return Packet{Buffers: g.bufs}
}

// ForEach calls fn for every remaining packet, stopping at the first error.
func (g *PacketGenerator) ForEach(fn func(Packet) error) error {
	for p := g.NextPacket(); !p.Empty(); p = g.NextPacket() {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}
