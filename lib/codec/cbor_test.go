// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type entry struct {
	Kind   string `cbor:"kind"`
	Length int    `cbor:"length"`
}

type tagged struct {
	Zebra int               `cbor:"zebra"`
	Apple int               `cbor:"apple"`
	Extra map[string]uint16 `cbor:"extra,omitempty"`
}

func TestMarshalRoundTrip(t *testing.T) {
	original := []entry{{Kind: "controller", Length: 28}, {Kind: "object", Length: 28}}
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded []entry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != original[0] || decoded[1] != original[1] {
		t.Errorf("decoded %+v, want %+v", decoded, original)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	value := tagged{Zebra: 1, Apple: 2, Extra: map[string]uint16{"z": 1, "a": 2, "m": 3}}
	first, err := Marshal(value)
	if err != nil {
		t.Fatal(err)
	}
	for range 20 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encodings differ: %x != %x", first, again)
		}
	}

	// Core deterministic ordering sorts shorter keys first, then
	// bytewise, so "apple" precedes "zebra".
	diagnostic, err := Diagnose(first)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if strings.Index(diagnostic, `"apple"`) > strings.Index(diagnostic, `"zebra"`) {
		t.Errorf("keys not sorted: %s", diagnostic)
	}
}

func TestDuplicateKeysRejected(t *testing.T) {
	// {"kind": "a", "kind": "b"}
	data := []byte{0xa2, 0x64, 'k', 'i', 'n', 'd', 0x61, 'a', 0x64, 'k', 'i', 'n', 'd', 0x61, 'b'}
	var decoded entry
	if err := Unmarshal(data, &decoded); err == nil {
		t.Errorf("duplicate keys accepted, decoded %+v", decoded)
	}
}

func TestSequence(t *testing.T) {
	var stream bytes.Buffer
	encoder := NewEncoder(&stream)
	for i := range 3 {
		if err := encoder.Encode(entry{Kind: "object", Length: i}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&stream)
	for i := range 3 {
		var decoded entry
		if err := decoder.Decode(&decoded); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if decoded.Length != i {
			t.Errorf("item %d has length %d", i, decoded.Length)
		}
	}
	var extra entry
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Errorf("Decode past end err = %v, want io.EOF", err)
	}
}
