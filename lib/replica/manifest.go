// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/peersync/lib/codec"
)

// ErrFingerprint means a manifest's fingerprint does not match its
// entries.
var ErrFingerprint = errors.New("replica: manifest fingerprint mismatch")

// ManifestEntry describes one registered entity.
type ManifestEntry struct {
	Kind   string `cbor:"kind"`
	Length int    `cbor:"length"`
}

// Manifest is the exchangeable description of a registry: the kinds and
// payload lengths in registration order, and a BLAKE3 fingerprint over
// their deterministic CBOR encoding. Two peers can only interpret each
// other's packets when their manifests are identical.
type Manifest struct {
	Entries     []ManifestEntry `cbor:"entries"`
	Fingerprint []byte          `cbor:"fingerprint"`
}

// Manifest describes the registry's current contents.
func (r *Registry) Manifest() (Manifest, error) {
	manifest := Manifest{Entries: make([]ManifestEntry, len(r.records))}
	for i, record := range r.records {
		manifest.Entries[i] = ManifestEntry{Kind: record.Entity.Kind(), Length: record.Length}
	}
	digest, err := manifest.digest()
	if err != nil {
		return Manifest{}, err
	}
	manifest.Fingerprint = digest[:]
	return manifest, nil
}

func (m Manifest) digest() ([32]byte, error) {
	encoded, err := codec.Marshal(m.Entries)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encoding manifest entries: %w", err)
	}
	return blake3.Sum256(encoded), nil
}

// Verify checks that the fingerprint matches the entries.
func (m Manifest) Verify() error {
	digest, err := m.digest()
	if err != nil {
		return err
	}
	if !bytes.Equal(digest[:], m.Fingerprint) {
		return ErrFingerprint
	}
	return nil
}

// Compare returns nil when other describes the same registry, or an
// error naming the first difference.
func (m Manifest) Compare(other Manifest) error {
	if bytes.Equal(m.Fingerprint, other.Fingerprint) && len(m.Entries) == len(other.Entries) {
		return nil
	}
	for i := range min(len(m.Entries), len(other.Entries)) {
		if m.Entries[i] != other.Entries[i] {
			return fmt.Errorf("entity %d: local %s/%d bytes, remote %s/%d bytes",
				i, m.Entries[i].Kind, m.Entries[i].Length,
				other.Entries[i].Kind, other.Entries[i].Length)
		}
	}
	if len(m.Entries) != len(other.Entries) {
		return fmt.Errorf("local registers %d entities, remote %d", len(m.Entries), len(other.Entries))
	}
	return errors.New("fingerprints differ with identical entries")
}

// MarshalManifest encodes m as CBOR.
func MarshalManifest(m Manifest) ([]byte, error) {
	return codec.Marshal(m)
}

// UnmarshalManifest decodes and verifies a CBOR manifest.
func UnmarshalManifest(data []byte) (Manifest, error) {
	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	if err := manifest.Verify(); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}
