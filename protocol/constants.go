// Package protocol
// Author: momentics <momentics@gmail.com>
//
// SPEAD wire protocol constants

package protocol

const (
	// Prefix word tag
	Magic   = 0x53
	Version = 4

	// PrefixSize covers the prefix word and the four mandatory item pointers.
	PrefixSize = 8 + 4*PointerSize
	// PointerSize is the width of one item pointer on the wire.
	PointerSize = 8
	// MinPacketSize leaves room for one application pointer and 8 payload bytes.
	MinPacketSize = PrefixSize + 16
	// MandatoryPointers precede the application pointers in every packet.
	MandatoryPointers = 4
	// MaxPointers is the largest pointer count the 16-bit prefix field holds.
	MaxPointers = 1<<16 - 1

	// Reserved item identifiers
	NullID          = 0x00
	HeapCntID       = 0x01
	HeapLengthID    = 0x02
	PayloadOffsetID = 0x03
	PayloadLengthID = 0x04
	DescriptorID    = 0x05
	StreamCtrlID    = 0x06

	// Stream control values carried by StreamCtrlID
	CtrlStreamStart       = 0
	CtrlDescriptorReissue = 1
	CtrlStreamStop        = 2
	CtrlDescriptorUpdate  = 3

	// Heap address widths used by deployed SPEAD flavours
	HeapAddressBits40 = 40
	HeapAddressBits48 = 48
)
