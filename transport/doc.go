// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport connects two peers over a WebRTC data channel.
//
// [Connect] pairs with the other peer through a [Signaler], exchanges
// one SDP offer and one answer with all ICE candidates already
// gathered, and returns a [Peer] once the data channel is open. The
// relay decides the [Role]: the initiator creates the PeerConnection
// offer and the single channel labelled "state". The channel is
// unordered with zero retransmits, so a late frame is simply lost and
// the next tick's frame supersedes it.
//
// [WebSocketSignaler] talks to the pairing relay in package signaling
// and learns its role from the relay's greeting. [MemorySignaler]
// pairs two peers in process for tests.
//
// Data channels are detached from pion's callback API and wrapped in a
// [MessageConn], a net.Conn that keeps message boundaries. [Peer] runs
// one read loop over it and hands every message to the OnMessage
// handler.
//
// [ICEConfig] carries the STUN and TURN servers; an empty config uses
// host candidates only.
package transport
