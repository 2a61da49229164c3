// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// peersync-peer is one side of a two-peer shared physics session.
//
// It dials the signaling relay, takes the role the relay assigns, and
// opens an unreliable unordered WebRTC data channel to the other peer.
// Both sides then build the world from the same layout, exchange
// registry manifests and run the tick loop: step physics, send the
// highest-priority entities that fit the packet budget, and apply the
// frame the jitter buffer releases.
//
// Without tracked input the local hand follows a sweeping path and
// grabs what it touches; --still holds it in place. With --capture (or
// capture.path) every frame is recorded for peersync-replay.
package main
