// File: protocol/header.go
// Package protocol implements the SPEAD packet prefix and header decoding.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Encoding is done in place into caller-owned header buffers; decoding
// returns views into the raw packet without copying.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrPacketTooShort  = errors.New("packet too short")
	ErrBadMagic        = errors.New("bad magic or version")
	ErrBadAddressWidth = errors.New("bad address width")
	ErrMissingPointer  = errors.New("missing mandatory item pointer")
	ErrPayloadMismatch = errors.New("payload length does not match packet")
)

// Prefix is the decoded first word of a packet.
type Prefix struct {
	HeapAddressBits int
	NumPointers     int
}

// EncodePrefix writes the prefix word for a packet carrying nPointers item
// pointers (mandatory ones included) into dst[:8].
func EncodePrefix(dst []byte, heapAddressBits, nPointers int) {
	w := uint64(heapAddressBits / 8)
	binary.BigEndian.PutUint64(dst, uint64(Magic)<<56|
		uint64(Version)<<48|
		(8-w)<<40|
		w<<32|
		uint64(uint16(nPointers)))
}

// DecodePrefix parses the prefix word at the start of src.
func DecodePrefix(src []byte) (Prefix, error) {
	if len(src) < 8 {
		return Prefix{}, ErrPacketTooShort
	}
	if src[0] != Magic || src[1] != Version {
		return Prefix{}, ErrBadMagic
	}
	w := int(src[3])
	if w == 0 || w >= 8 || int(src[2]) != 8-w {
		return Prefix{}, fmt.Errorf("%w: %d/%d", ErrBadAddressWidth, src[2], src[3])
	}
	return Prefix{
		HeapAddressBits: w * 8,
		NumPointers:     int(binary.BigEndian.Uint16(src[6:8])),
	}, nil
}

// PacketHeader is a decoded packet. Payload aliases the raw packet.
type PacketHeader struct {
	HeapAddressBits int
	HeapCnt         uint64
	HeapLength      uint64
	PayloadOffset   uint64
	PayloadLength   uint64
	// Items holds the application item pointers in wire order.
	Items   []ItemPointer
	Payload []byte
}

var mandatoryIDs = [4]uint64{HeapCntID, HeapLengthID, PayloadOffsetID, PayloadLengthID}

// DecodePacket parses one complete wire packet.
func DecodePacket(raw []byte) (PacketHeader, error) {
	p, err := DecodePrefix(raw)
	if err != nil {
		return PacketHeader{}, err
	}
	if p.NumPointers < len(mandatoryIDs) {
		return PacketHeader{}, ErrMissingPointer
	}
	end := 8 + p.NumPointers*PointerSize
	if len(raw) < end {
		return PacketHeader{}, fmt.Errorf("%w: need %d bytes of header, have %d", ErrPacketTooShort, end, len(raw))
	}
	enc, err := NewPointerEncoder(p.HeapAddressBits)
	if err != nil {
		return PacketHeader{}, err
	}

	var mandatory [4]uint64
	for i, id := range mandatoryIDs {
		ip := enc.Decode(binary.BigEndian.Uint64(raw[8+i*PointerSize:]))
		if ip.ID != id || !ip.Immediate {
			return PacketHeader{}, fmt.Errorf("%w: id 0x%x", ErrMissingPointer, id)
		}
		mandatory[i] = ip.Value
	}

	h := PacketHeader{
		HeapAddressBits: p.HeapAddressBits,
		HeapCnt:         mandatory[0],
		HeapLength:      mandatory[1],
		PayloadOffset:   mandatory[2],
		PayloadLength:   mandatory[3],
		Items:           make([]ItemPointer, 0, p.NumPointers-len(mandatoryIDs)),
		Payload:         raw[end:],
	}
	for off := 8 + len(mandatoryIDs)*PointerSize; off < end; off += PointerSize {
		h.Items = append(h.Items, enc.Decode(binary.BigEndian.Uint64(raw[off:])))
	}
	if uint64(len(h.Payload)) != h.PayloadLength {
		return PacketHeader{}, fmt.Errorf("%w: declared %d, got %d", ErrPayloadMismatch, h.PayloadLength, len(h.Payload))
	}
	return h, nil
}

// PacketLength returns the wire length of the packet starting at buf. It is
// used to split a capture of back-to-back packets.
func PacketLength(buf []byte) (int, error) {
	p, err := DecodePrefix(buf)
	if err != nil {
		return 0, err
	}
	if p.NumPointers < len(mandatoryIDs) {
		return 0, ErrMissingPointer
	}
	end := 8 + p.NumPointers*PointerSize
	if len(buf) < end {
		return 0, fmt.Errorf("%w: need %d bytes of header, have %d", ErrPacketTooShort, end, len(buf))
	}
	enc, err := NewPointerEncoder(p.HeapAddressBits)
	if err != nil {
		return 0, err
	}
	ip := enc.Decode(binary.BigEndian.Uint64(buf[8+3*PointerSize:]))
	if ip.ID != PayloadLengthID || !ip.Immediate {
		return 0, fmt.Errorf("%w: id 0x%x", ErrMissingPointer, PayloadLengthID)
	}
	if ip.Value > uint64(len(buf)-end) {
		return 0, fmt.Errorf("%w: payload of %d bytes truncated", ErrPacketTooShort, ip.Value)
	}
	return end + int(ip.Value), nil
}
