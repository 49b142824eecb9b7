// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-spead components.

package benchmarks

import (
	"context"
	"testing"

	"github.com/momentics/hioload-spead/fake"
	"github.com/momentics/hioload-spead/pool"
	"github.com/momentics/hioload-spead/send"
)

// BenchmarkBytePoolAllocation tests header buffer pool performance.
func BenchmarkBytePoolAllocation(b *testing.B) {
	bp := pool.NewBytePool(send.HeaderBufferSize(9000))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			bp.PutBuffer(bp.GetBuffer())
		}
	})
}

// BenchmarkRingThroughput tests push/pop hand-off on one goroutine.
func BenchmarkRingThroughput(b *testing.B) {
	r := pool.NewRing[int](1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if r.TryPush(i) != nil {
			_, _ = r.TryPop()
			_ = r.TryPush(i)
		}
	}
}

// BenchmarkRingProducerConsumer tests cross-goroutine hand-off with a
// blocking consumer.
func BenchmarkRingProducerConsumer(b *testing.B) {
	r := pool.NewRing[int](256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := r.Pop(); err != nil {
				return
			}
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for r.TryPush(i) != nil {
		}
	}
	r.Stop()
	<-done
}

// BenchmarkGenerator tests fragmentation of a 1 MiB heap into jumbo frames.
func BenchmarkGenerator(b *testing.B) {
	data := make([]byte, 1<<20)
	h := send.NewHeap(1,
		send.NewBufferItem(0x1000, data),
		send.NewImmediateItem(0x1001, 42),
	)
	hdr := make([]byte, send.HeaderBufferSize(8972))

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g, err := send.NewPacketGenerator(h, 48, 8972, send.WithHeaderBuffer(hdr))
		if err != nil {
			b.Fatal(err)
		}
		for p := g.NextPacket(); !p.Empty(); p = g.NextPacket() {
		}
	}
}

// BenchmarkStream tests end-to-end stream performance over a fake transport.
func BenchmarkStream(b *testing.B) {
	tr := fake.NewTransport()
	cfg := send.DefaultStreamConfig()
	cfg.SendStopHeap = false
	s, err := send.NewStream(tr, cfg)
	if err != nil {
		b.Fatal(err)
	}
	backlog := send.NewBacklog(s, 0)
	data := make([]byte, 64*1024)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := backlog.Submit(send.NewHeap(uint64(i+1), send.NewBufferItem(0x1000, data))); err != nil {
			b.Fatal(err)
		}
		if i%64 == 63 {
			tr.ClearSentPackets()
		}
	}
	if err := backlog.Drain(context.Background()); err != nil {
		b.Fatal(err)
	}
	if err := s.Close(context.Background()); err != nil {
		b.Fatal(err)
	}
}
