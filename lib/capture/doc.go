// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture records the frames a session exchanges so they can be
// inspected after the fact.
//
// A capture is a CBOR sequence: one [Header] carrying the sender's
// registry manifest, then one [Record] per frame sent or received.
// The sequence is wrapped in a zstd (default) or lz4 stream; [Open]
// detects which from the magic bytes. Frames are stored verbatim,
// envelope included, so the replay tool decodes them with the same
// lib/packet code the live session uses.
package capture
