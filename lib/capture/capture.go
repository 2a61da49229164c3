// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"fmt"

	"github.com/bureau-foundation/peersync/lib/replica"
)

// FormatVersion is written into every capture header.
const FormatVersion = 1

// Direction says which way a captured frame travelled.
type Direction uint8

const (
	Outbound Direction = 1
	Inbound  Direction = 2
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "out"
	case Inbound:
		return "in"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Compression selects the stream codec of a capture file.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression validates a configured compression name. The empty
// string selects zstd.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "":
		return CompressionZstd, nil
	case CompressionNone, CompressionZstd, CompressionLZ4:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("capture: unknown compression %q (want none, zstd, or lz4)", name)
	}
}

// Header is the first item of every capture.
type Header struct {
	Version   int  `cbor:"version"`
	Initiator bool `cbor:"initiator"`
	// Started is the Unix time in nanoseconds when recording began.
	Started  int64            `cbor:"started"`
	Manifest replica.Manifest `cbor:"manifest"`
}

// Record is one captured data-channel frame.
type Record struct {
	// Tick is the local tick at which the frame was sent or received.
	Tick      uint32    `cbor:"tick"`
	Direction Direction `cbor:"direction"`
	// At is nanoseconds since Header.Started.
	At    int64  `cbor:"at"`
	Frame []byte `cbor:"frame"`
}
