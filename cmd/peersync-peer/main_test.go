// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/peersync/lib/capture"
	"github.com/bureau-foundation/peersync/lib/clock"
	"github.com/bureau-foundation/peersync/lib/config"
	"github.com/bureau-foundation/peersync/lib/packet"
	"github.com/bureau-foundation/peersync/lib/testutil"
	"github.com/bureau-foundation/peersync/transport"
)

func TestPeersRunSessionAndCapture(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dir := t.TempDir()

	newConfig := func(capturePath string) *config.Config {
		cfg := config.Default()
		// Loopback candidates only; no STUN round trip in tests.
		cfg.ICE.Servers = nil
		cfg.Capture.Path = capturePath
		cfg.Capture.Compression = "lz4"
		return cfg
	}
	initiatorCapture := filepath.Join(dir, "initiator.capture")
	responderCapture := filepath.Join(dir, "responder.capture")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	initiator, responder := transport.NewMemorySignalerPair()
	done := make(chan error, 2)
	for _, side := range []struct {
		signaler transport.Signaler
		path     string
	}{{initiator, initiatorCapture}, {responder, responderCapture}} {
		go func() {
			done <- runPeer(ctx, peerParams{
				config:    newConfig(side.path),
				signaler:  side.signaler,
				clock:     clock.Real(),
				duration:  time.Second,
				autopilot: true,
				logger:    logger,
			})
		}()
	}
	for range 2 {
		if err := testutil.RequireReceive(t, done, 35*time.Second, "waiting for runPeer"); err != nil {
			t.Fatalf("runPeer: %v", err)
		}
	}

	for _, c := range []struct {
		path      string
		initiator bool
	}{{initiatorCapture, true}, {responderCapture, false}} {
		reader, err := capture.Open(c.path)
		if err != nil {
			t.Fatalf("capture.Open(%s): %v", c.path, err)
		}
		if reader.Header().Initiator != c.initiator {
			t.Errorf("%s: header initiator = %v", c.path, reader.Header().Initiator)
		}

		states := map[capture.Direction]int{}
		for {
			record, err := reader.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("%s: Next: %v", c.path, err)
			}
			frame, err := packet.ParseFrame(record.Frame)
			if err != nil {
				t.Fatalf("%s: captured frame does not parse: %v", c.path, err)
			}
			if frame.Kind == packet.FrameState {
				states[record.Direction]++
			}
		}
		reader.Close()

		if states[capture.Outbound] == 0 || states[capture.Inbound] == 0 {
			t.Errorf("%s: state frames out=%d in=%d, want both directions",
				c.path, states[capture.Outbound], states[capture.Inbound])
		}
	}
}
