// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package jitter holds incoming state frames between the network
// callback and the tick loop.
//
// Received frames are stored in a ring indexed by their tick number
// modulo the ring length, and applied only at the tick loop's
// processing point. With [PacingLatest] the newest frame wins; this is
// the normal mode, since every state packet is a complete statement of
// the sender's owned entities. [PacingAdaptive] trails the newest tick
// by a fixed delay and smooths over loss and bursts with two rolling
// averages: the gap to the newest tick (too large or too negative
// triggers a skip-ahead) and the fraction of missing frames (above one
// half, the previous frame is repeated).
package jitter
