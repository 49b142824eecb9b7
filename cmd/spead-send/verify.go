// File: cmd/spead-send/verify.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/momentics/hioload-spead/protocol"
)

type verifyResult struct {
	Packets    int    `json:"packets"`
	Heaps      int    `json:"heaps"`
	Bytes      uint64 `json:"payload_bytes"`
	StopHeap   bool   `json:"stop_heap"`
	LastHeapID uint64 `json:"last_heap_cnt"`
}

// verifyCapture decodes a file of back-to-back packets and checks that each
// heap's payload windows are contiguous and add up to its heap length.
func verifyCapture(path string) (verifyResult, error) {
	var res verifyResult
	buf, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}

	var cur uint64
	var next uint64
	open := false
	for len(buf) > 0 {
		n, err := protocol.PacketLength(buf)
		if err != nil {
			return res, fmt.Errorf("packet %d: %w", res.Packets, err)
		}
		h, err := protocol.DecodePacket(buf[:n])
		if err != nil {
			return res, fmt.Errorf("packet %d: %w", res.Packets, err)
		}
		buf = buf[n:]
		res.Packets++

		if !open || h.HeapCnt != cur {
			if open && next != 0 {
				return res, fmt.Errorf("heap %d: incomplete before heap %d", cur, h.HeapCnt)
			}
			cur, next, open = h.HeapCnt, 0, true
			res.Heaps++
		}
		if h.PayloadOffset != next {
			return res, fmt.Errorf("heap %d: payload offset %d, want %d", cur, h.PayloadOffset, next)
		}
		next += h.PayloadLength
		res.Bytes += h.PayloadLength
		if next == h.HeapLength {
			next = 0
		}
		for _, it := range h.Items {
			if it.ID == protocol.StreamCtrlID && it.Immediate && it.Value == protocol.CtrlStreamStop {
				res.StopHeap = true
			}
		}
		res.LastHeapID = cur
	}
	if next != 0 {
		return res, fmt.Errorf("heap %d: incomplete at end of capture", cur)
	}
	return res, nil
}
