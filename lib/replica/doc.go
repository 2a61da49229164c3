// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package replica defines the entities whose state two peers mirror and
// the registry that addresses them.
//
// Every [Entity] encodes a fixed-length payload. The [Registry] assigns
// each entity its registration index and freezes the payload length with
// a dry-run encode; the packet framing addresses entities purely by
// position, so both peers must register the same kinds in the same
// order. [Manifest] is the exchangeable form of that order, compared
// during the session handshake.
//
// Two entity kinds exist:
//
//   - [Controller] is a player's hand. The local one is always sent at
//     full precision; the remote one is never sent.
//   - [Object] is a shared physics body. Ownership is tracked with
//     lib/authority counters; only the owner's state is applied by the
//     other peer. A grabbed object is encoded relative to its grabber so
//     it stays attached on the other peer.
package replica
