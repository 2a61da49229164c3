// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/peersync/internal/cli"
	"github.com/bureau-foundation/peersync/lib/version"
	"github.com/bureau-foundation/peersync/signaling"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		listen      string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("peersync-signal", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to peersync.yaml (default: $PEERSYNC_CONFIG)")
	flagSet.StringVar(&listen, "listen", "", "address to serve on (overrides signaling.listen)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("peersync-signal %s\n", version.Info())
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := cli.NewLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.Signaling.Listen
	}
	logger.Info("peersync-signal starting", "version", version.Info())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listen, err)
	}
	return serve(ctx, listener, signaling.New(logger), logger)
}

// serve runs the relay on listener until ctx is cancelled, then shuts
// the server down gracefully.
func serve(ctx context.Context, listener net.Listener, relay *signaling.Relay, logger *slog.Logger) error {
	server := &http.Server{
		Handler:           relay,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("signaling relay listening", "address", listener.Addr().String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		logger.Info("signaling relay shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Shutdown does not wait for hijacked websocket connections; close
	// them so both peers see the relay go away.
	relay.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("signaling relay stopped")
	return nil
}
