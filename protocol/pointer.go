// File: protocol/pointer.go
// Package protocol implements the SPEAD item pointer codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// An item pointer is one 64-bit word, most significant bit first:
//
//	bit 63                 mode (0 = immediate, 1 = address)
//	bits 62..addressBits   item identifier
//	bits addressBits-1..0  immediate value or payload byte offset
//
// The address field width is a per-stream setting, so it is carried by the
// encoder rather than by every call site.

package protocol

import (
	"github.com/momentics/hioload-spead/api"
)

const modeBit = uint64(1) << 63

// ItemPointer is a decoded item pointer.
type ItemPointer struct {
	ID        uint64
	Immediate bool
	// Value is the immediate value, or the payload offset in address mode.
	Value uint64
}

// PointerEncoder packs item pointers for a fixed heap address width.
type PointerEncoder struct {
	heapAddressBits uint
	valueMask       uint64
	idMask          uint64
}

// NewPointerEncoder validates heapAddressBits and returns an encoder.
// The width must be byte aligned and leave at least one byte of identifier.
func NewPointerEncoder(heapAddressBits int) (PointerEncoder, error) {
	if heapAddressBits <= 0 || heapAddressBits > 56 || heapAddressBits%8 != 0 {
		return PointerEncoder{}, api.ConfigError(api.ErrInvalidArgument).
			WithContext("heap_address_bits", heapAddressBits)
	}
	bits := uint(heapAddressBits)
	return PointerEncoder{
		heapAddressBits: bits,
		valueMask:       uint64(1)<<bits - 1,
		idMask:          uint64(1)<<(63-bits) - 1,
	}, nil
}

// HeapAddressBits returns the configured address field width.
func (e PointerEncoder) HeapAddressBits() int { return int(e.heapAddressBits) }

// AddressBytes returns the address field width in bytes.
func (e PointerEncoder) AddressBytes() int { return int(e.heapAddressBits / 8) }

// MaxID returns the largest item identifier the encoder can carry.
func (e PointerEncoder) MaxID() uint64 { return e.idMask }

// EncodeImmediate packs value into an immediate-mode pointer.
// Bits of value above the address width are discarded.
func (e PointerEncoder) EncodeImmediate(id, value uint64) uint64 {
	return (id&e.idMask)<<e.heapAddressBits | value&e.valueMask
}

// EncodeAddress packs a payload byte offset into an address-mode pointer.
func (e PointerEncoder) EncodeAddress(id, offset uint64) uint64 {
	return modeBit | (id&e.idMask)<<e.heapAddressBits | offset&e.valueMask
}

// Decode unpacks a wire word.
func (e PointerEncoder) Decode(word uint64) ItemPointer {
	return ItemPointer{
		ID:        (word >> e.heapAddressBits) & e.idMask,
		Immediate: word&modeBit == 0,
		Value:     word & e.valueMask,
	}
}

// ImmediateFromBytes folds b into a value whose big-endian encoding ends
// with b, so the bytes occupy the low-order bytes of the wire word.
// len(b) must not exceed AddressBytes.
func ImmediateFromBytes(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
