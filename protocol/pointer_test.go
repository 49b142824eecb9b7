package protocol_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-spead/api"
	"github.com/momentics/hioload-spead/protocol"
)

func TestPointerLayout40(t *testing.T) {
	enc, err := protocol.NewPointerEncoder(40)
	require.NoError(t, err)

	imm := enc.EncodeImmediate(0x1234, 0xABCDEF)
	assert.Equal(t, uint64(0), imm>>63, "immediate pointers clear the mode bit")
	assert.Equal(t, uint64(0x1234), imm>>40)
	assert.Equal(t, uint64(0xABCDEF), imm&(1<<40-1))

	addr := enc.EncodeAddress(0x1234, 4096)
	assert.Equal(t, uint64(1), addr>>63, "address pointers set the mode bit")
	assert.Equal(t, uint64(0x1234), (addr>>40)&(1<<23-1))
	assert.Equal(t, uint64(4096), addr&(1<<40-1))
}

func TestPointerDecode(t *testing.T) {
	for _, bits := range []int{protocol.HeapAddressBits40, protocol.HeapAddressBits48} {
		enc, err := protocol.NewPointerEncoder(bits)
		require.NoError(t, err)

		ip := enc.Decode(enc.EncodeImmediate(protocol.HeapCntID, 77))
		assert.Equal(t, protocol.ItemPointer{ID: protocol.HeapCntID, Immediate: true, Value: 77}, ip)

		ip = enc.Decode(enc.EncodeAddress(0x1600, 123456))
		assert.Equal(t, protocol.ItemPointer{ID: 0x1600, Immediate: false, Value: 123456}, ip)
	}
}

func TestEncodeImmediateTruncates(t *testing.T) {
	enc, err := protocol.NewPointerEncoder(40)
	require.NoError(t, err)
	word := enc.EncodeImmediate(1, 1<<40|5)
	assert.Equal(t, uint64(5), enc.Decode(word).Value)
	assert.Equal(t, uint64(1), enc.Decode(word).ID)
}

func TestImmediateFromBytesLandsInLowOrderBytes(t *testing.T) {
	enc, err := protocol.NewPointerEncoder(48)
	require.NoError(t, err)

	word := enc.EncodeImmediate(0x20, protocol.ImmediateFromBytes([]byte{0xDE, 0xAD, 0xBE}))
	var wire [8]byte
	binary.BigEndian.PutUint64(wire[:], word)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE}, wire[5:])
}

func TestNewPointerEncoderRejectsWidths(t *testing.T) {
	for _, bits := range []int{0, 7, 41, 64, -8} {
		_, err := protocol.NewPointerEncoder(bits)
		require.Error(t, err, "bits=%d", bits)
		assert.Equal(t, api.ErrCodeConfiguration, api.CodeOf(err))
	}
}

func TestPointerEncoderMaxID(t *testing.T) {
	enc, err := protocol.NewPointerEncoder(48)
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<15-1, enc.MaxID())
	word := enc.EncodeImmediate(enc.MaxID(), 1)
	assert.Equal(t, enc.MaxID(), enc.Decode(word).ID)

	enc, err = protocol.NewPointerEncoder(40)
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<23-1, enc.MaxID())
}
