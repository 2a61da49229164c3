// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/bureau-foundation/peersync/lib/testutil"
	"github.com/bureau-foundation/peersync/signaling"
	"github.com/bureau-foundation/peersync/transport"
)

func TestServeUntilCancelled(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, listener, signaling.New(logger), logger) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	signaler, err := transport.DialWebSocket(dialCtx, "ws://"+listener.Addr().String(), logger)
	if err != nil {
		t.Fatalf("DialWebSocket: %v", err)
	}
	defer signaler.Close()
	role, err := signaler.Join(dialCtx)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if role != transport.RoleInitiator {
		t.Errorf("role = %s, want initiator", role)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 10*time.Second, "waiting for serve to return"); err != nil {
		t.Errorf("serve returned %v, want nil", err)
	}
	if _, err := signaler.Receive(dialCtx); err == nil {
		t.Error("client still connected after shutdown")
	}
}
