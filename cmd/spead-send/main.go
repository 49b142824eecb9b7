// File: cmd/spead-send/main.go
// Package main
// Sends a file as a SPEAD stream, either over UDP or into a capture file.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/hioload-spead/api"
	"github.com/momentics/hioload-spead/control"
	"github.com/momentics/hioload-spead/internal/transport"
	"github.com/momentics/hioload-spead/protocol"
	"github.com/momentics/hioload-spead/send"
)

const closeTimeout = 30 * time.Second

type options struct {
	configPath string
	dest       string
	out        string
	heapSize   int
	rate       float64
	verify     bool
	input      string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "JSON configuration file")
	flag.StringVar(&opts.dest, "dest", "", "destination host:port (overrides config)")
	flag.StringVar(&opts.out, "out", "", "write packets to this file instead of sending UDP")
	flag.IntVar(&opts.heapSize, "heap-size", 0, "payload bytes per heap (overrides config)")
	flag.Float64Var(&opts.rate, "rate", -1, "send rate in bytes/s, 0 for unlimited (overrides config)")
	flag.BoolVar(&opts.verify, "verify", false, "decode every packet written to -out")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] input-file\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.input = flag.Arg(0)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	send.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, opts); err != nil {
		log.Error("spead-send failed", "error", err, "code", api.CodeOf(err))
		os.Exit(1)
	}
}

func loadConfig(opts options) (control.FileConfig, error) {
	cfg := control.DefaultFileConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = control.LoadConfigFile(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if opts.dest != "" {
		cfg.Destination = opts.dest
	}
	if opts.heapSize > 0 {
		cfg.HeapSize = opts.heapSize
	}
	if opts.rate >= 0 {
		cfg.Rate = opts.rate
	}
	if cfg.HeapSize <= 0 {
		return cfg, api.ConfigError(api.ErrInvalidArgument).WithContext("heap_size", cfg.HeapSize)
	}
	enc, err := protocol.NewPointerEncoder(cfg.HeapAddressBits)
	if err != nil {
		return cfg, err
	}
	// Each heap carries ItemID and ItemID+1.
	if cfg.ItemID >= enc.MaxID() {
		return cfg, api.ConfigError(api.ErrInvalidArgument).
			WithContext("item_id", cfg.ItemID).
			WithContext("max_item_id", enc.MaxID()-1)
	}
	return cfg, nil
}

func streamConfig(cfg control.FileConfig) send.StreamConfig {
	return send.StreamConfig{
		MaxPacketSize:   cfg.MaxPacketSize,
		HeapAddressBits: cfg.HeapAddressBits,
		MaxHeaps:        cfg.MaxHeaps,
		Rate:            cfg.Rate,
		BurstSize:       cfg.BurstSize,
		SendStopHeap:    cfg.SendStopHeap,
	}
}

func openTransport(log *slog.Logger, cfg control.FileConfig, out string) (api.PacketTransport, error) {
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return nil, fmt.Errorf("create capture: %w", err)
		}
		return transport.NewWriterTransport(f), nil
	}
	return transport.NewUDPTransport(cfg.Destination, transport.UDPConfig{
		SendBufferSize: cfg.SendBufferSize,
		Logger:         log,
	})
}

func run(ctx context.Context, log *slog.Logger, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	tr, err := openTransport(log, cfg, opts.out)
	if err != nil {
		return err
	}
	tw := transport.NewTransportWrapper(tr)
	features := tw.Features()
	log.Debug("transport ready", "zero_copy", features.ZeroCopy, "os", features.OS)

	metrics := control.NewMetricsRegistry()
	probes := control.NewDebugProbes()
	stream, err := send.NewStream(tw, streamConfig(cfg),
		send.WithCPU(cfg.SenderCPU),
		send.WithLogger(log),
		send.WithMetrics(metrics),
		send.WithDebugProbes(probes),
		send.OnError(func(h *send.Heap, err error) {
			log.Warn("heap lost", "heap_cnt", h.Cnt(), "error", err)
		}))
	if err != nil {
		tw.Close()
		return err
	}

	backlog := send.NewBacklog(stream, cfg.BacklogLimit)
	backlog.OnDrop(func(h *send.Heap) {
		metrics.Add("backlog_dropped", 1)
	})
	probes.RegisterProbe("backlog.len", func() any { return backlog.Len() })

	sendErr := submitChunks(ctx, stream, backlog, data, cfg)
	if sendErr == nil {
		sendErr = backlog.Drain(ctx)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := stream.Close(closeCtx); err != nil && sendErr == nil {
		sendErr = err
	}

	stats := stream.Stats()
	stats["input_bytes"] = int64(len(data))
	report := map[string]any{"stats": stats}
	if opts.verify && opts.out != "" {
		res, err := verifyCapture(opts.out)
		if err != nil && sendErr == nil {
			sendErr = fmt.Errorf("verify: %w", err)
		}
		report["verify"] = res
	}
	if err := control.WriteSnapshot(os.Stdout, report); err != nil && sendErr == nil {
		sendErr = err
	}
	return sendErr
}

// submitChunks splits data into heaps of cfg.HeapSize bytes. Each heap holds
// the chunk and an inline item with the chunk index.
func submitChunks(ctx context.Context, stream *send.Stream, backlog *send.Backlog, data []byte, cfg control.FileConfig) error {
	for idx, off := uint64(0), 0; off < len(data); idx, off = idx+1, off+cfg.HeapSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Wait instead of letting the backlog drop file data.
		if cfg.BacklogLimit > 0 && backlog.Len() >= cfg.BacklogLimit {
			if err := backlog.Drain(ctx); err != nil {
				return err
			}
		}
		end := min(off+cfg.HeapSize, len(data))
		h := send.NewHeap(stream.NextHeapCnt(),
			send.NewBufferItem(cfg.ItemID, data[off:end]),
			send.NewImmediateItem(cfg.ItemID+1, idx),
		)
		if err := backlog.Submit(h); err != nil {
			return err
		}
	}
	return nil
}
