package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-spead/api"
)

func TestTransportFeaturesStruct(t *testing.T) {
	f := api.TransportFeatures{ZeroCopy: true, Datagram: true, OS: []string{"linux"}}
	assert.True(t, f.ZeroCopy)
	assert.True(t, f.Datagram)
}

func TestTransportInterfaceCompliance(t *testing.T) {
	var _ api.PacketTransport = (*mockTransport)(nil)
	var _ api.FeatureReporter = (*mockTransport)(nil)
}

// mockTransport implements api.PacketTransport for interface checks.
type mockTransport struct{}

func (*mockTransport) SendPacket([][]byte) error       { return nil }
func (*mockTransport) Close() error                    { return nil }
func (*mockTransport) Features() api.TransportFeatures { return api.TransportFeatures{} }

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want api.ErrorCode
	}{
		{nil, api.ErrCodeOK},
		{api.ErrRingFull, api.ErrCodeCapacity},
		{fmt.Errorf("push: %w", api.ErrRingFull), api.ErrCodeCapacity},
		{api.ErrRingEmpty, api.ErrCodeAvailability},
		{api.ErrRingStopped, api.ErrCodeLifecycle},
		{api.ErrTransportClosed, api.ErrCodeLifecycle},
		{api.ErrStreamClosed, api.ErrCodeLifecycle},
		{api.ErrPacketSizeTooSmall, api.ErrCodeConfiguration},
		{api.ConfigError(errors.New("bad width")), api.ErrCodeConfiguration},
		{errors.New("other"), api.ErrCodeInternal},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, api.CodeOf(c.err), "%v", c.err)
	}
}

func TestStructuredError(t *testing.T) {
	err := api.ConfigError(api.ErrPacketSizeTooSmall).WithContext("max_packet_size", 40)
	assert.ErrorIs(t, err, api.ErrPacketSizeTooSmall)
	assert.Contains(t, err.Error(), "max_packet_size")
	assert.Equal(t, "configuration", err.Code.String())

	plain := api.NewError(api.ErrCodeInternal, "boom")
	assert.Equal(t, "boom", plain.Error())
	assert.NoError(t, plain.Unwrap())
}
