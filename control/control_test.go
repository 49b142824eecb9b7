package control_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-spead/control"
)

func TestMetricsRegistryConcurrentAdd(t *testing.T) {
	mr := control.NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				mr.Add("packets", 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(8000), mr.Get("packets"))
	mr.Set("heaps", 3)
	snap := mr.GetSnapshot()
	assert.Equal(t, map[string]int64{"packets": 8000, "heaps": 3}, snap)
	assert.False(t, mr.Updated().IsZero())
}

func TestDebugProbes(t *testing.T) {
	dp := control.NewDebugProbes()
	depth := 4
	dp.RegisterProbe("ring_len", func() any { return depth })
	assert.Equal(t, map[string]any{"ring_len": 4}, dp.DumpState())
	dp.UnregisterProbe("ring_len")
	assert.Empty(t, dp.DumpState())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	cfg, err := control.LoadConfig(strings.NewReader(`{"destination": "10.0.0.1:7148", "max_packet_size": 9000, "rate": 1e9}`))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:7148", cfg.Destination)
	assert.Equal(t, 9000, cfg.MaxPacketSize)
	assert.Equal(t, 1e9, cfg.Rate)
	assert.Equal(t, 48, cfg.HeapAddressBits, "unset fields keep defaults")
	assert.True(t, cfg.SendStopHeap)
}

func TestLoadConfigEmptyAndInvalid(t *testing.T) {
	cfg, err := control.LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, control.DefaultFileConfig(), cfg)

	_, err = control.LoadConfig(strings.NewReader(`{"max_packet_sise": 1}`))
	assert.Error(t, err)
	_, err = control.LoadConfigFile("/nonexistent/spead.json")
	assert.Error(t, err)
}

func TestWriteSnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, control.WriteSnapshot(&buf, map[string]int64{"bytes": 10}))
	assert.JSONEq(t, `{"bytes": 10}`, buf.String())
}
