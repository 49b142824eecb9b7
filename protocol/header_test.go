package protocol_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-spead/protocol"
)

func buildPacket(t *testing.T, bits int, app []uint64, payload []byte) []byte {
	t.Helper()
	enc, err := protocol.NewPointerEncoder(bits)
	require.NoError(t, err)
	raw := make([]byte, protocol.PrefixSize+8*len(app)+len(payload))
	protocol.EncodePrefix(raw, bits, len(app)+4)
	words := []uint64{
		enc.EncodeImmediate(protocol.HeapCntID, 9),
		enc.EncodeImmediate(protocol.HeapLengthID, 100),
		enc.EncodeImmediate(protocol.PayloadOffsetID, 10),
		enc.EncodeImmediate(protocol.PayloadLengthID, uint64(len(payload))),
	}
	words = append(words, app...)
	for i, w := range words {
		binary.BigEndian.PutUint64(raw[8+8*i:], w)
	}
	copy(raw[8+8*len(words):], payload)
	return raw
}

func TestPrefixWord(t *testing.T) {
	var buf [8]byte
	protocol.EncodePrefix(buf[:], 40, 7)
	assert.Equal(t, []byte{0x53, 0x04, 3, 5, 0, 0, 0, 7}, buf[:])

	p, err := protocol.DecodePrefix(buf[:])
	require.NoError(t, err)
	assert.Equal(t, protocol.Prefix{HeapAddressBits: 40, NumPointers: 7}, p)
}

func TestDecodePrefixErrors(t *testing.T) {
	_, err := protocol.DecodePrefix([]byte{0x53})
	assert.ErrorIs(t, err, protocol.ErrPacketTooShort)

	_, err = protocol.DecodePrefix([]byte{0x53, 0x03, 3, 5, 0, 0, 0, 4})
	assert.ErrorIs(t, err, protocol.ErrBadMagic)

	_, err = protocol.DecodePrefix([]byte{0x53, 0x04, 2, 5, 0, 0, 0, 4})
	assert.ErrorIs(t, err, protocol.ErrBadAddressWidth)
}

func TestDecodePacket(t *testing.T) {
	enc, _ := protocol.NewPointerEncoder(48)
	app := []uint64{enc.EncodeImmediate(0x1000, 3), enc.EncodeAddress(0x1001, 0)}
	raw := buildPacket(t, 48, app, []byte("0123456789"))

	h, err := protocol.DecodePacket(raw)
	require.NoError(t, err)
	assert.Equal(t, 48, h.HeapAddressBits)
	assert.Equal(t, uint64(9), h.HeapCnt)
	assert.Equal(t, uint64(100), h.HeapLength)
	assert.Equal(t, uint64(10), h.PayloadOffset)
	assert.Equal(t, uint64(10), h.PayloadLength)
	require.Len(t, h.Items, 2)
	assert.True(t, h.Items[0].Immediate)
	assert.False(t, h.Items[1].Immediate)
	assert.Equal(t, uint64(0x1001), h.Items[1].ID)
	assert.Equal(t, []byte("0123456789"), h.Payload)
}

func TestDecodePacketRejectsTruncation(t *testing.T) {
	raw := buildPacket(t, 40, nil, []byte("abcdefgh"))

	_, err := protocol.DecodePacket(raw[:protocol.PrefixSize-1])
	assert.ErrorIs(t, err, protocol.ErrPacketTooShort)

	_, err = protocol.DecodePacket(raw[:len(raw)-1])
	assert.ErrorIs(t, err, protocol.ErrPayloadMismatch)
}

func TestDecodePacketRequiresMandatoryPointers(t *testing.T) {
	raw := buildPacket(t, 40, nil, nil)
	binary.BigEndian.PutUint64(raw[8:], 0) // overwrite heap cnt pointer
	_, err := protocol.DecodePacket(raw)
	assert.ErrorIs(t, err, protocol.ErrMissingPointer)

	var short [8]byte
	protocol.EncodePrefix(short[:], 40, 2)
	_, err = protocol.DecodePacket(short[:])
	assert.ErrorIs(t, err, protocol.ErrMissingPointer)
}

func TestPacketLengthSplitsCapture(t *testing.T) {
	a := buildPacket(t, 48, []uint64{1 << 63}, []byte("abcdefgh"))
	b := buildPacket(t, 40, nil, []byte("0123456789abcdef"))
	capture := append(append([]byte(nil), a...), b...)

	n, err := protocol.PacketLength(capture)
	require.NoError(t, err)
	assert.Equal(t, len(a), n)
	n2, err := protocol.PacketLength(capture[n:])
	require.NoError(t, err)
	assert.Equal(t, len(b), n2)

	_, err = protocol.PacketLength(capture[n : n+len(b)-1])
	assert.ErrorIs(t, err, protocol.ErrPacketTooShort)
	_, err = protocol.PacketLength(capture[:6])
	assert.ErrorIs(t, err, protocol.ErrPacketTooShort)
}
