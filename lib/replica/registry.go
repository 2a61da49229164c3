// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/peersync/lib/wire"
)

var (
	// ErrLengthMismatch means an entity wrote a different number of
	// bytes than its frozen registration length.
	ErrLengthMismatch = errors.New("replica: encoded length differs from registered length")

	// ErrDuplicateController means two controllers share a wire id.
	ErrDuplicateController = errors.New("replica: duplicate controller id")

	// ErrDuplicateEntity means an entity was registered a second time.
	ErrDuplicateEntity = errors.New("replica: entity already registered")
)

// Record is one registered entity with its frozen payload length.
type Record struct {
	Index  int
	Entity Entity
	Length int
}

// Registry is the ordered set of replicated entities. Both peers must
// register the same kinds in the same order; the registration index is
// the entity's implicit address on the wire.
//
// Registry is not safe for concurrent use. It is built once before the
// session starts and read by the tick loop afterwards.
type Registry struct {
	records     []Record
	entities    map[Entity]struct{}
	controllers map[uint8]*Controller
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities:    make(map[Entity]struct{}),
		controllers: make(map[uint8]*Controller),
	}
}

// Register appends entity and returns its index. The payload length is
// inferred with a dry-run encode, then confirmed by encoding into a
// real buffer of exactly that size. Entities are tracked by identity,
// so each one occupies exactly one slot.
func (r *Registry) Register(entity Entity) (int, error) {
	if _, exists := r.entities[entity]; exists {
		return -1, fmt.Errorf("%w: %s at index %d", ErrDuplicateEntity, entity.Kind(), r.indexOf(entity))
	}

	measure := wire.Measure()
	entity.Encode(measure)
	length := measure.Len()

	check := wire.NewWriter(make([]byte, length))
	entity.Encode(check)
	if check.Len() != length || check.Err() != nil {
		return -1, fmt.Errorf("%w: %s measured %d bytes, encoded %d",
			ErrLengthMismatch, entity.Kind(), length, check.Len())
	}

	if controller, ok := entity.(*Controller); ok {
		if _, exists := r.controllers[controller.ID()]; exists {
			return -1, fmt.Errorf("%w: %d", ErrDuplicateController, controller.ID())
		}
		r.controllers[controller.ID()] = controller
	}

	index := len(r.records)
	r.records = append(r.records, Record{Index: index, Entity: entity, Length: length})
	r.entities[entity] = struct{}{}
	return index, nil
}

func (r *Registry) indexOf(entity Entity) int {
	for _, record := range r.records {
		if record.Entity == entity {
			return record.Index
		}
	}
	return -1
}

// Len returns the number of registered entities.
func (r *Registry) Len() int { return len(r.records) }

// Entity returns the entity at index.
func (r *Registry) Entity(index int) Entity { return r.records[index].Entity }

// ByteLength returns the frozen payload length of the entity at index.
func (r *Registry) ByteLength(index int) int { return r.records[index].Length }

// Records returns the registered entities in order. The slice must not
// be modified.
func (r *Registry) Records() []Record { return r.records }

// Lengths returns the frozen payload lengths in registration order.
func (r *Registry) Lengths() []int {
	lengths := make([]int, len(r.records))
	for i, record := range r.records {
		lengths[i] = record.Length
	}
	return lengths
}

// Controller returns the registered controller with the given wire id.
func (r *Registry) Controller(id uint8) (*Controller, bool) {
	controller, ok := r.controllers[id]
	return controller, ok
}
