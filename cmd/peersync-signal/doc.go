// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// peersync-signal is the pairing relay two peersync-peer processes use
// to exchange their SDP offer and answer.
//
// It serves websocket connections on signaling.listen (or --listen).
// The first client is told to start a session, the second is told one
// will be offered, and messages between them are forwarded verbatim,
// with anything sent by the first before the second arrives queued.
// A third client is refused. When either peer disconnects, both are
// closed and the relay waits for a new pair.
//
// The relay carries signaling only. Once the peers' data channel is
// open, they stop using it.
package main
