// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/peersync/lib/replica"
)

// FrameKind is the first byte of every data-channel message.
type FrameKind uint8

const (
	// FrameState carries a tick number and a state packet.
	FrameState FrameKind = 1
	// FrameManifest carries the sender's CBOR registry manifest.
	FrameManifest FrameKind = 2
)

func (k FrameKind) String() string {
	switch k {
	case FrameState:
		return "state"
	case FrameManifest:
		return "manifest"
	default:
		return fmt.Sprintf("frame(%d)", uint8(k))
	}
}

// ErrUnknownFrame means the first byte names no known frame kind.
var ErrUnknownFrame = errors.New("packet: unknown frame kind")

const stateHeaderLength = 1 + 4

// Frame is a parsed data-channel message. Payload aliases the input.
type Frame struct {
	Kind FrameKind
	// Tick is the sender's tick number; zero for manifest frames.
	Tick uint32
	// Payload is the state packet or the encoded manifest.
	Payload []byte
}

// EncodeStateFrame wraps a state packet with its tick number.
func EncodeStateFrame(tick uint32, packet []byte) []byte {
	frame := make([]byte, stateHeaderLength+len(packet))
	frame[0] = byte(FrameState)
	binary.BigEndian.PutUint32(frame[1:stateHeaderLength], tick)
	copy(frame[stateHeaderLength:], packet)
	return frame
}

// EncodeManifestFrame wraps a registry manifest.
func EncodeManifestFrame(manifest replica.Manifest) ([]byte, error) {
	encoded, err := replica.MarshalManifest(manifest)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest frame: %w", err)
	}
	return append([]byte{byte(FrameManifest)}, encoded...), nil
}

// ParseFrame splits a data-channel message into its parts.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("%w: empty frame", ErrShortPacket)
	}
	kind := FrameKind(data[0])
	switch kind {
	case FrameState:
		if len(data) < stateHeaderLength {
			return Frame{}, fmt.Errorf("%w: state frame of %d bytes", ErrShortPacket, len(data))
		}
		return Frame{
			Kind:    kind,
			Tick:    binary.BigEndian.Uint32(data[1:stateHeaderLength]),
			Payload: data[stateHeaderLength:],
		}, nil
	case FrameManifest:
		return Frame{Kind: kind, Payload: data[1:]}, nil
	default:
		return Frame{}, fmt.Errorf("%w: %d", ErrUnknownFrame, data[0])
	}
}

// Manifest decodes and verifies the payload of a manifest frame.
func (f Frame) Manifest() (replica.Manifest, error) {
	if f.Kind != FrameManifest {
		return replica.Manifest{}, fmt.Errorf("packet: %s frame has no manifest", f.Kind)
	}
	return replica.UnmarshalManifest(f.Payload)
}
