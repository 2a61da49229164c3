// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session runs the fixed-rate synchronization loop between two
// peers.
//
// Each [Session.Tick] runs the [WithInput] hook, steps the
// [world.World], lets the scheduler pick the entities worth sending
// under the byte budget, writes them into a packet, and wraps it in a
// state frame stamped with the tick. Frames arriving through
// [Session.Deliver] go into a jitter buffer, and one released frame is
// applied per tick after the local step.
//
// Before any state flows, both peers exchange registry manifests. A
// peer keeps resending its manifest until the first state frame from
// the other side shows it was accepted. A manifest that does not match
// ends the session with [ErrManifestMismatch], since entity indices
// would mean different things on each side.
package session
