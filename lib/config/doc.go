// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration shared by peersync-peer
// and peersync-signal.
//
// Configuration comes from a single file named by the PEERSYNC_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). Values in the file are layered over [Default]; there is
// no directory search and no per-field environment override.
//
// The file may carry development and production sections that
// override the signaling, session, capture and log sections when
// [Config].Environment matches. Production without a section of its
// own never writes captures.
//
// capture.path and signaling.url support ${VAR} and ${VAR:-default}
// expansion from the environment.
//
// The world section holds the shared [world.Layout]. Both peers must
// load the same layout, which the manifest handshake enforces.
package config
