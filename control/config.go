// control/config.go
// Author: momentics <momentics@gmail.com>
//
// JSON configuration files for senders. Missing fields keep their defaults.

package control

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// FileConfig is the on-disk sender configuration.
type FileConfig struct {
	Destination     string  `json:"destination"`
	MaxPacketSize   int     `json:"max_packet_size"`
	HeapAddressBits int     `json:"heap_address_bits"`
	MaxHeaps        int     `json:"max_heaps"`
	Rate            float64 `json:"rate"`
	BurstSize       int     `json:"burst_size"`
	SendStopHeap    bool    `json:"send_stop_heap"`
	SendBufferSize  int     `json:"send_buffer_size"`
	HeapSize        int     `json:"heap_size"`
	ItemID          uint64  `json:"item_id"`
	BacklogLimit    int     `json:"backlog_limit"`
	// SenderCPU pins the sender thread; negative disables pinning.
	SenderCPU int `json:"sender_cpu"`
}

// DefaultFileConfig returns the configuration used when no file is given.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Destination:     "127.0.0.1:8888",
		MaxPacketSize:   1472,
		HeapAddressBits: 48,
		MaxHeaps:        8,
		BurstSize:       65536,
		SendStopHeap:    true,
		SendBufferSize:  512 * 1024,
		HeapSize:        65536,
		ItemID:          0x1000,
		BacklogLimit:    1024,
		SenderCPU:       -1,
	}
}

// LoadConfig decodes a FileConfig over the defaults. Unknown fields are
// rejected so typos do not pass silently.
func LoadConfig(r io.Reader) (FileConfig, error) {
	cfg := DefaultFileConfig()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads a FileConfig from path.
func LoadConfigFile(path string) (FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return DefaultFileConfig(), fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// WriteSnapshot writes v as indented JSON followed by a newline.
func WriteSnapshot(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
