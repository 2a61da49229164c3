// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/peersync/internal/cli"
	"github.com/bureau-foundation/peersync/lib/capture"
	"github.com/bureau-foundation/peersync/lib/clock"
	"github.com/bureau-foundation/peersync/lib/config"
	"github.com/bureau-foundation/peersync/lib/jitter"
	"github.com/bureau-foundation/peersync/lib/session"
	"github.com/bureau-foundation/peersync/lib/version"
	"github.com/bureau-foundation/peersync/lib/world"
	"github.com/bureau-foundation/peersync/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		capturePath string
		duration    time.Duration
		still       bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("peersync-peer", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to peersync.yaml (default: $PEERSYNC_CONFIG)")
	flagSet.StringVar(&capturePath, "capture", "", "record every frame to this file (overrides capture.path)")
	flagSet.DurationVar(&duration, "duration", 0, "stop after the session has run this long (default: run until interrupted)")
	flagSet.BoolVar(&still, "still", false, "hold the local hand still instead of sweeping it")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("peersync-peer %s\n", version.Info())
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if capturePath != "" {
		cfg.Capture.Path = capturePath
	}
	logger, err := cli.NewLogger(cfg.Log.Level)
	if err != nil {
		return err
	}

	logger.Info("peersync-peer starting", "version", version.Info(), "relay", cfg.Signaling.URL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timeout, err := cfg.ConnectTimeout()
	if err != nil {
		return err
	}
	dialCtx, dialCancel := context.WithTimeout(ctx, timeout)
	defer dialCancel()
	signaler, err := transport.DialWebSocket(dialCtx, cfg.Signaling.URL, logger)
	if err != nil {
		return err
	}
	defer signaler.Close()

	return runPeer(ctx, peerParams{
		config:    cfg,
		signaler:  signaler,
		clock:     clock.Real(),
		duration:  duration,
		autopilot: !still,
		logger:    logger,
	})
}

type peerParams struct {
	config    *config.Config
	signaler  transport.Signaler
	clock     clock.Clock
	// duration, when positive, ends the session that long after the
	// data channel opened.
	duration  time.Duration
	autopilot bool
	logger    *slog.Logger
}

// runPeer connects to the other peer through the signaler, builds the
// world for the assigned role and runs the session until ctx ends or
// the connection drops. Running out of ctx or duration is a normal
// stop.
func runPeer(ctx context.Context, params peerParams) error {
	cfg, logger := params.config, params.logger

	timeout, err := cfg.ConnectTimeout()
	if err != nil {
		return err
	}
	connectCtx, connectCancel := context.WithTimeout(ctx, timeout)
	defer connectCancel()
	peer, err := transport.Connect(connectCtx, params.signaler, transport.ICEConfigFromURLs(cfg.ICE.Servers), logger)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connecting to peer: %w", err)
	}
	defer peer.Close()
	// The relay has done its job.
	params.signaler.Close()

	logger = logger.With("role", peer.Role().String())
	w, err := world.New(cfg.World, peer.Initiator(), logger)
	if err != nil {
		return fmt.Errorf("building world: %w", err)
	}

	pacing, err := jitter.ParsePacing(cfg.Session.Jitter.Pacing)
	if err != nil {
		return err
	}
	sessionConfig := session.Config{
		TickInterval:    cfg.TickInterval(),
		FramesPerUpdate: cfg.Session.FramesPerUpdate,
		Budget:          cfg.Session.Budget,
		MaxPacket:       cfg.Session.MaxPacket,
		Jitter: jitter.Config{
			Length: cfg.Session.Jitter.Length,
			Delay:  cfg.Session.Jitter.Delay,
			Pacing: pacing,
		},
	}

	var options []session.Option
	if params.autopilot {
		options = append(options, session.WithInput(newAutopilot(peer.Initiator()).step))
	}
	if cfg.Capture.Path != "" {
		recorder, err := startCapture(cfg, w, peer.Initiator(), params.clock)
		if err != nil {
			return err
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error("closing capture failed", "error", err)
				return
			}
			logger.Info("capture written", "path", cfg.Capture.Path, "records", recorder.Count())
		}()
		options = append(options, session.WithRecorder(recorder))
	}

	sess, err := session.New(w, peer, params.clock, sessionConfig, logger, options...)
	if err != nil {
		return err
	}
	peer.OnMessage(sess.Deliver)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var expired <-chan time.Time
	if params.duration > 0 {
		expired = params.clock.After(params.duration)
	}
	go func() {
		select {
		case <-expired:
			logger.Info("session duration reached", "duration", params.duration)
			cancel()
		case <-peer.Done():
			logger.Warn("peer connection closed")
			cancel()
		case <-runCtx.Done():
		}
	}()

	err = sess.Run(runCtx)
	// Stop deliveries before the capture closes.
	peer.Close()
	jitterStats := sess.JitterStats()
	logger.Info("jitter buffer",
		"applied", jitterStats.Applied,
		"missing", jitterStats.Missing,
		"stale", jitterStats.Stale,
		"average_gap", jitterStats.AverageGap,
	)
	return err
}

func startCapture(cfg *config.Config, w *world.World, initiator bool, clk clock.Clock) (*capture.Recorder, error) {
	compression, err := capture.ParseCompression(cfg.Capture.Compression)
	if err != nil {
		return nil, err
	}
	manifest, err := w.Registry().Manifest()
	if err != nil {
		return nil, fmt.Errorf("building manifest: %w", err)
	}
	return capture.Create(cfg.Capture.Path, compression, capture.Header{
		Initiator: initiator,
		Manifest:  manifest,
	}, clk)
}
