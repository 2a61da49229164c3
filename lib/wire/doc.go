// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire is the primitive codec for entity payloads.
//
// An entity's Encode method chains Write calls on a [Writer] and its
// Decode method chains Read calls on a [Reader]; neither tracks offsets
// itself. The cursor is a parameter, never state stashed on the entity,
// so nested or repeated encodes cannot clobber each other.
//
// [Measure] returns a Writer with no backing buffer. Running Encode
// against it yields the entity's byte length without touching memory.
// The registry does this exactly once per entity and then treats the
// length as part of the wire format.
//
// Two float encodings are offered:
//
//   - float32: four bytes, exact for float32-representable values.
//   - float16: two bytes, x*32768/maxVal rounded into an int16. The
//     per-component error is at most maxVal/32768. Positions use a
//     range of 5, velocities 100, unit quaternion components 1.
//
// All multi-byte values are big-endian.
package wire
