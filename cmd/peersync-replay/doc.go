// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// peersync-replay inspects a capture written by peersync-peer.
//
// It prints the header, then totals per direction: frames, bytes,
// manifests, malformed frames and how often each registered entity was
// carried in a state frame. --frames lists every frame with the
// entities present in it, found by walking the packet with the lengths
// from the recorded manifest. --config rebuilds the world from a
// configuration file and reports whether its manifest matches the
// capture.
package main
