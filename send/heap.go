// File: send/heap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Heap and item model. A heap is read-only once built; item buffers are
// borrowed from the caller and never copied.

package send

import "github.com/momentics/hioload-spead/protocol"

// Item is one named value of a heap.
type Item struct {
	ID     uint64
	Inline bool
	// Value is the immediate value of an inline item.
	Value uint64
	// Data is the borrowed payload of a non-inline item. It must stay valid
	// and unmodified until every generator over the heap is finished.
	Data []byte
}

// NewImmediateItem returns an inline item carrying value in its pointer.
func NewImmediateItem(id, value uint64) Item {
	return Item{ID: id, Inline: true, Value: value}
}

// NewBufferItem returns an item referencing data.
func NewBufferItem(id uint64, data []byte) Item {
	return Item{ID: id, Data: data}
}

// Heap is an ordered collection of items identified by a heap counter.
// Item order determines payload placement and address assignment.
type Heap struct {
	cnt   uint64
	items []Item
}

// NewHeap builds a heap. The item slice is copied; item buffers are not.
func NewHeap(cnt uint64, items ...Item) *Heap {
	return &Heap{cnt: cnt, items: append([]Item(nil), items...)}
}

// NewStopHeap returns a heap that tells receivers the stream has ended.
func NewStopHeap(cnt uint64) *Heap {
	return NewHeap(cnt, NewImmediateItem(protocol.StreamCtrlID, protocol.CtrlStreamStop))
}

// Cnt returns the heap counter.
func (h *Heap) Cnt() uint64 { return h.cnt }

// Items returns the items in heap order. Callers must not modify it.
func (h *Heap) Items() []Item { return h.items }

// Len returns the number of items.
func (h *Heap) Len() int { return len(h.items) }
