// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the one CBOR configuration every peersync
// component shares.
//
// Two things are CBOR: the registry manifest peers exchange before
// state flows, and capture files. The per-tick state packets are not;
// they use the fixed-layout binary format in lib/wire.
//
// Encoding is Core Deterministic (sorted map keys, shortest integers,
// no indefinite lengths), which is what makes a manifest fingerprint
// comparable across peers:
//
//	data, err := codec.Marshal(manifest.Entries)
//	sum := blake3.Sum256(data)
//
// Captures are written and read as CBOR sequences:
//
//	encoder := codec.NewEncoder(stream)
//	decoder := codec.NewDecoder(stream)
//
// Types serialized here carry `cbor` struct tags.
package codec
