// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package packet frames selected entity payloads into the compact
// skip-count format exchanged every tick.
//
// A packet is a sequence of (skip, payload) pairs in registration
// order, terminated by [SkipSentinel]:
//
//	[skip u8][payload of entity i]...[250]
//
// skip counts the unselected entities before the next selected one.
// Payloads carry no length or id: the receiver walks its own registry
// in lock-step, using the registered lengths to find each window. Both
// peers must therefore hold identical registries, which the session
// checks by exchanging manifests first.
//
// Every data-channel message starts with a [FrameKind] byte. State
// frames add a big-endian uint32 tick before the packet so the jitter
// buffer can order them; manifest frames carry a CBOR
// [replica.Manifest].
package packet
