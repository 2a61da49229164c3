// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling implements the pairing relay two peers use to
// exchange their SDP offer and answer.
//
// The [Relay] is deliberately dumb: it knows nothing about SDP. It
// greets the first client with "go ahead and start a session" and the
// second with "somebody will offer you a session soon", then forwards
// messages between them verbatim. transport.WebSocketSignaler is the
// client side.
//
// One relay serves one pair at a time. It holds no state beyond the two
// connections and the messages queued for a missing partner.
package signaling
