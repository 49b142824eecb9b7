// File: send/stream.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stream couples a bounded heap ring with one sender goroutine. Producers
// hand heaps over with TrySendHeap; the sender fragments each heap and
// writes its packets to the transport, optionally paced by a token bucket.

package send

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/momentics/hioload-spead/affinity"
	"github.com/momentics/hioload-spead/api"
	"github.com/momentics/hioload-spead/control"
	"github.com/momentics/hioload-spead/pool"
	"github.com/momentics/hioload-spead/protocol"
)

// Metric keys reported by Stream.Stats.
const (
	MetricHeapsSent     = "heaps_sent"
	MetricHeapsRejected = "heaps_rejected"
	MetricHeapsDropped  = "heaps_dropped"
	MetricPacketsSent   = "packets_sent"
	MetricBytesSent     = "bytes_sent"
	MetricSendErrors    = "send_errors"
	MetricRingLen       = "ring_len"
)

// Probe names registered on the stream's DebugProbes.
const (
	ProbeRingLen = "stream.ring_len"
	ProbeRingCap = "stream.ring_cap"
)

// StreamConfig holds stream tunables.
type StreamConfig struct {
	MaxPacketSize   int
	HeapAddressBits int
	// MaxHeaps is the ring capacity: heaps queued but not yet sent.
	MaxHeaps int
	// Rate limits transmission in bytes per second. Zero disables pacing.
	Rate float64
	// BurstSize is the token bucket depth in bytes. It is raised to
	// MaxPacketSize when smaller.
	BurstSize int
	// SendStopHeap makes Close end the stream with a stop heap.
	SendStopHeap bool
}

// DefaultStreamConfig returns defaults suitable for a standard Ethernet MTU.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MaxPacketSize:   1472,
		HeapAddressBits: protocol.HeapAddressBits48,
		MaxHeaps:        8,
		BurstSize:       65536,
		SendStopHeap:    true,
	}
}

// Validate checks the configuration.
func (c StreamConfig) Validate() error {
	if c.MaxPacketSize < protocol.MinPacketSize {
		return api.ConfigError(api.ErrPacketSizeTooSmall).
			WithContext("max_packet_size", c.MaxPacketSize).
			WithContext("min_packet_size", protocol.MinPacketSize)
	}
	if _, err := protocol.NewPointerEncoder(c.HeapAddressBits); err != nil {
		return api.ConfigError(err).WithContext("heap_address_bits", c.HeapAddressBits)
	}
	if c.MaxHeaps <= 0 {
		return api.ConfigError(api.ErrInvalidArgument).WithContext("max_heaps", c.MaxHeaps)
	}
	if c.Rate < 0 {
		return api.ConfigError(api.ErrInvalidArgument).WithContext("rate", c.Rate)
	}
	if c.BurstSize < 0 {
		return api.ConfigError(api.ErrInvalidArgument).WithContext("burst_size", c.BurstSize)
	}
	return nil
}

// StreamOption customizes a Stream.
type StreamOption func(*Stream)

// WithLogger sets the stream logger.
func WithLogger(l *slog.Logger) StreamOption {
	return func(s *Stream) { s.log = l }
}

// WithMetrics records stream counters into reg instead of a private registry.
func WithMetrics(reg *control.MetricsRegistry) StreamOption {
	return func(s *Stream) { s.metrics = reg }
}

// WithDebugProbes registers the stream probes on dp.
func WithDebugProbes(dp *control.DebugProbes) StreamOption {
	return func(s *Stream) { s.probes = dp }
}

// WithRingWaiter selects the wait strategy of the sender goroutine.
func WithRingWaiter(w pool.Waiter) StreamOption {
	return func(s *Stream) { s.waiter = w }
}

// WithCPU pins the sender goroutine to an OS thread bound to cpu. A
// negative cpu leaves scheduling to the runtime.
func WithCPU(cpu int) StreamOption {
	return func(s *Stream) { s.cpu = cpu }
}

// OnError registers fn to be called from the sender goroutine when a heap
// could not be sent completely.
func OnError(fn func(h *Heap, err error)) StreamOption {
	return func(s *Stream) { s.onError = fn }
}

// OnHeapSent registers fn to be called from the sender goroutine after the
// last packet of h was written. Item buffers of h may be reused from then on.
func OnHeapSent(fn func(h *Heap)) StreamOption {
	return func(s *Stream) { s.onSent = fn }
}

// Stream sends heaps over a packet transport.
type Stream struct {
	cfg     StreamConfig
	tr      api.PacketTransport
	ring    *pool.Ring[*Heap]
	waiter  pool.Waiter
	headers *pool.BytePool
	limiter *rate.Limiter
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes
	log     *slog.Logger
	onError func(*Heap, error)
	onSent  func(*Heap)
	cpu     int

	cnt     atomic.Uint64 // highest heap counter handed out or seen
	aborted atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewStream validates cfg and starts the sender goroutine. The stream owns
// tr from now on and closes it in Close.
func NewStream(tr api.PacketTransport, cfg StreamConfig, opts ...StreamOption) (*Stream, error) {
	if tr == nil {
		return nil, api.ConfigError(api.ErrInvalidArgument).WithContext("transport", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Stream{
		cfg:     cfg,
		tr:      tr,
		headers: pool.NewBytePool(HeaderBufferSize(cfg.MaxPacketSize)),
		done:    make(chan struct{}),
		cpu:     -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger()
	}
	s.log = s.log.With("component", "stream")
	if s.metrics == nil {
		s.metrics = control.NewMetricsRegistry()
	}
	if s.probes == nil {
		s.probes = control.NewDebugProbes()
	}
	var ringOpts []pool.RingOption
	if s.waiter != nil {
		ringOpts = append(ringOpts, pool.WithWaiter(s.waiter))
	}
	s.ring = pool.NewRing[*Heap](cfg.MaxHeaps, ringOpts...)
	if cfg.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), max(cfg.BurstSize, cfg.MaxPacketSize))
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.probes.RegisterProbe(ProbeRingLen, func() any { return s.ring.Len() })
	s.probes.RegisterProbe(ProbeRingCap, func() any { return s.ring.Cap() })

	go s.run()
	s.log.Debug("stream started",
		"max_packet_size", cfg.MaxPacketSize,
		"heap_address_bits", cfg.HeapAddressBits,
		"max_heaps", cfg.MaxHeaps,
		"rate", cfg.Rate)
	return s, nil
}

// Config returns the stream configuration.
func (s *Stream) Config() StreamConfig { return s.cfg }

// Probes returns the debug probe registry the stream reports into.
func (s *Stream) Probes() *control.DebugProbes { return s.probes }

// NextHeapCnt returns a heap counter larger than any heap passed to
// TrySendHeap so far.
func (s *Stream) NextHeapCnt() uint64 { return s.cnt.Add(1) }

func (s *Stream) observeCnt(c uint64) {
	for {
		cur := s.cnt.Load()
		if c <= cur || s.cnt.CompareAndSwap(cur, c) {
			return
		}
	}
}

// TrySendHeap queues h for transmission without blocking. It returns
// api.ErrRingFull when MaxHeaps heaps are already queued and
// api.ErrRingStopped once Close has begun. The caller must keep the item
// buffers of h intact until the heap is reported sent or failed.
func (s *Stream) TrySendHeap(h *Heap) error {
	// Observed before the push so a concurrent Close cannot hand the same
	// counter to the stop heap.
	s.observeCnt(h.Cnt())
	if err := s.ring.TryPush(h); err != nil {
		if errors.Is(err, api.ErrRingFull) {
			s.metrics.Add(MetricHeapsRejected, 1)
		}
		return err
	}
	return nil
}

// Len returns the number of queued heaps.
func (s *Stream) Len() int { return s.ring.Len() }

func (s *Stream) run() {
	defer close(s.done)
	if s.cpu >= 0 {
		// Never unlocked: the thread exits with the goroutine instead of
		// returning to the scheduler with a narrowed CPU mask.
		runtime.LockOSThread()
		if err := affinity.SetAffinity(s.cpu); err != nil {
			s.log.Warn("sender pinning failed", "cpu", s.cpu, "error", err)
		}
	}
	for {
		h, err := s.ring.Pop()
		if err != nil {
			return
		}
		if s.aborted.Load() {
			s.metrics.Add(MetricHeapsDropped, 1)
			s.fail(h, api.ErrStreamClosed)
			continue
		}
		if err := s.sendHeap(h); err != nil {
			s.metrics.Add(MetricSendErrors, 1)
			s.log.Warn("heap send failed", "heap_cnt", h.Cnt(), "error", err)
			s.fail(h, err)
			continue
		}
		s.metrics.Add(MetricHeapsSent, 1)
		if s.onSent != nil {
			s.onSent(h)
		}
	}
}

func (s *Stream) fail(h *Heap, err error) {
	if s.onError != nil {
		s.onError(h, err)
	}
}

// sendHeap writes every packet of h. It must only run on one goroutine at a
// time.
func (s *Stream) sendHeap(h *Heap) error {
	hdr := s.headers.GetBuffer()
	defer s.headers.PutBuffer(hdr)

	g, err := NewPacketGenerator(h, s.cfg.HeapAddressBits, s.cfg.MaxPacketSize, WithHeaderBuffer(hdr))
	if err != nil {
		return fmt.Errorf("heap %d: %w", h.Cnt(), err)
	}
	seq := 0
	return g.ForEach(func(p Packet) error {
		n := p.Len()
		if s.limiter != nil {
			if err := s.limiter.WaitN(s.ctx, n); err != nil {
				return fmt.Errorf("heap %d packet %d: pacing: %w", h.Cnt(), seq, err)
			}
		}
		if err := s.tr.SendPacket(p.Buffers); err != nil {
			return fmt.Errorf("heap %d packet %d: %w", h.Cnt(), seq, err)
		}
		seq++
		s.metrics.Add(MetricPacketsSent, 1)
		s.metrics.Add(MetricBytesSent, int64(n))
		return nil
	})
}

// Close stops accepting heaps, waits until the queued heaps are sent, sends
// the stop heap if configured and closes the transport. When ctx ends first
// the remaining heaps are dropped, the stop heap is skipped and ctx.Err() is
// returned. Subsequent calls return the first result.
func (s *Stream) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { s.closeErr = s.close(ctx) })
	return s.closeErr
}

func (s *Stream) close(ctx context.Context) error {
	s.ring.Stop()
	defer s.probes.UnregisterProbe(ProbeRingLen)
	defer s.probes.UnregisterProbe(ProbeRingCap)

	var errs []error
	select {
	case <-s.done:
	case <-ctx.Done():
		s.aborted.Store(true)
		s.cancel()
		// The transport waits for a send in progress; later sends fail with
		// api.ErrTransportClosed instead of reaching the wire.
		if err := s.tr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transport: %w", err))
		}
		<-s.done
		s.log.Warn("stream close interrupted", "error", ctx.Err(),
			"dropped", s.metrics.Get(MetricHeapsDropped))
		return errors.Join(append(errs, ctx.Err())...)
	}
	defer s.cancel()

	if s.cfg.SendStopHeap {
		stop := NewStopHeap(s.NextHeapCnt())
		if err := s.sendHeap(stop); err != nil {
			s.metrics.Add(MetricSendErrors, 1)
			errs = append(errs, fmt.Errorf("stop heap: %w", err))
		} else {
			s.metrics.Add(MetricHeapsSent, 1)
		}
	}
	if err := s.tr.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close transport: %w", err))
	}
	s.log.Debug("stream closed",
		"heaps_sent", s.metrics.Get(MetricHeapsSent),
		"packets_sent", s.metrics.Get(MetricPacketsSent))
	return errors.Join(errs...)
}

// Stats returns a snapshot of the stream counters plus the current ring
// depth.
func (s *Stream) Stats() map[string]int64 {
	snap := s.metrics.GetSnapshot()
	for _, k := range []string{MetricHeapsSent, MetricPacketsSent, MetricBytesSent, MetricSendErrors} {
		if _, ok := snap[k]; !ok {
			snap[k] = 0
		}
	}
	snap[MetricRingLen] = int64(s.ring.Len())
	return snap
}
