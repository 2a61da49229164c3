// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/peersync/lib/replica"
	"github.com/bureau-foundation/peersync/lib/wire"
)

// SkipSentinel terminates a packet. Skip counts are 0..249.
const SkipSentinel = 250

// DefaultMaxPacket is the hard ceiling on an encoded packet.
const DefaultMaxPacket = 2000

var (
	// ErrTooManySkipped means 250 or more consecutive unselected
	// entities precede a selected one, which the one-byte skip count
	// cannot express.
	ErrTooManySkipped = errors.New("packet: too many consecutive skipped entities")

	// ErrPacketTooLarge means the encoded packet would exceed the
	// ceiling.
	ErrPacketTooLarge = errors.New("packet: encoded packet exceeds maximum size")

	// ErrShortPacket means the data ends inside an entity window or
	// before a skip byte.
	ErrShortPacket = errors.New("packet: truncated packet")

	// ErrMalformedSkip means a skip byte above the sentinel.
	ErrMalformedSkip = errors.New("packet: malformed skip byte")

	// ErrSelection means the selected indices are unsorted, repeated,
	// or out of range.
	ErrSelection = errors.New("packet: invalid selection")
)

// Assembler encodes and decodes packets for one registry.
type Assembler struct {
	registry  *replica.Registry
	maxPacket int
}

// NewAssembler returns an assembler over registry. A non-positive
// maxPacket selects DefaultMaxPacket.
func NewAssembler(registry *replica.Registry, maxPacket int) *Assembler {
	if maxPacket <= 0 {
		maxPacket = DefaultMaxPacket
	}
	return &Assembler{registry: registry, maxPacket: maxPacket}
}

// Size returns the encoded size of a packet carrying selected.
func (a *Assembler) Size(selected []int) int {
	size := 1
	for _, index := range selected {
		size += 1 + a.registry.ByteLength(index)
	}
	return size
}

// Encode writes the selected entities, given as ascending registration
// indices, as (skip, payload) pairs followed by the sentinel.
// Unselected entities after the last selected one cost nothing.
func (a *Assembler) Encode(selected []int) ([]byte, error) {
	previous := -1
	for _, index := range selected {
		if index <= previous || index >= a.registry.Len() {
			return nil, fmt.Errorf("%w: %v", ErrSelection, selected)
		}
		if skip := index - previous - 1; skip >= SkipSentinel {
			return nil, fmt.Errorf("%w: %d before entity %d", ErrTooManySkipped, skip, index)
		}
		previous = index
	}

	size := a.Size(selected)
	if size > a.maxPacket {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrPacketTooLarge, size, a.maxPacket)
	}

	buffer := make([]byte, size)
	offset := 0
	previous = -1
	for _, index := range selected {
		buffer[offset] = uint8(index - previous - 1)
		offset++

		length := a.registry.ByteLength(index)
		entity := a.registry.Entity(index)
		writer := wire.NewWriter(buffer[offset : offset+length])
		entity.Encode(writer)
		if writer.Len() != length || writer.Err() != nil {
			return nil, fmt.Errorf("%w: entity %d (%s) wrote %d bytes, registered %d",
				replica.ErrLengthMismatch, index, entity.Kind(), writer.Len(), length)
		}
		offset += length
		previous = index
	}
	buffer[offset] = SkipSentinel
	return buffer, nil
}

// Decode applies a packet to the registry. Each entity receives a
// reader over exactly its payload window; entities not in the packet
// are untouched. The whole packet is framed before any entity sees it,
// so a truncated or malformed packet applies nothing. An entity that
// rejects its own payload stops the walk; Decode returns the indices
// applied before it.
func (a *Assembler) Decode(data []byte) ([]int, error) {
	lengths := a.registry.Lengths()
	if err := Walk(data, lengths, func(int, []byte) error { return nil }); err != nil {
		return nil, err
	}

	var applied []int
	err := Walk(data, lengths, func(index int, payload []byte) error {
		entity := a.registry.Entity(index)
		if err := entity.Decode(wire.NewReader(payload)); err != nil {
			return fmt.Errorf("entity %d (%s): %w", index, entity.Kind(), err)
		}
		applied = append(applied, index)
		return nil
	})
	return applied, err
}

// Walk steps through a packet using only the payload lengths and calls
// fn with each present entity's index and payload window. It stops at
// the sentinel or when the lengths are exhausted; bytes after either
// are ignored.
func Walk(data []byte, lengths []int, fn func(index int, payload []byte) error) error {
	if len(data) == 0 {
		return ErrShortPacket
	}
	offset := 0
	skip := int(data[offset])
	offset++

	index := 0
	for {
		if skip == SkipSentinel {
			return nil
		}
		if skip > SkipSentinel {
			return fmt.Errorf("%w: %d at offset %d", ErrMalformedSkip, skip, offset-1)
		}
		index += skip
		if index >= len(lengths) {
			return nil
		}

		end := offset + lengths[index]
		if end > len(data) {
			return fmt.Errorf("%w: entity %d needs %d bytes at offset %d, have %d",
				ErrShortPacket, index, lengths[index], offset, len(data)-offset)
		}
		if err := fn(index, data[offset:end]); err != nil {
			return err
		}
		offset = end
		index++

		if offset >= len(data) {
			return fmt.Errorf("%w: missing skip byte after entity %d", ErrShortPacket, index-1)
		}
		skip = int(data[offset])
		offset++
	}
}
