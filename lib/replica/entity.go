// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"github.com/bureau-foundation/peersync/lib/geom"
	"github.com/bureau-foundation/peersync/lib/wire"
)

// Entity is anything whose state is mirrored between the two peers.
//
// Encode must write the same number of bytes on every call: the registry
// freezes that length at registration and the packet framing relies on
// it to skip entities the reader chooses not to consume. Decode receives
// a reader windowed to exactly that length and may stop early.
type Entity interface {
	// Kind names the entity type for manifests and logs.
	Kind() string
	// Priority is the scheduling weight for this tick. Negative values
	// mean the entity is never sent.
	Priority() int
	Encode(w *wire.Writer)
	Decode(r *wire.Reader) error
}

// Body is the physics collaborator behind a replicated entity.
type Body interface {
	Position() geom.Vec3
	SetPosition(geom.Vec3)
	Rotation() geom.Quat
	SetRotation(geom.Quat)
	LinearVelocity() geom.Vec3
	SetLinearVelocity(geom.Vec3)
	AngularVelocity() geom.Vec3
	SetAngularVelocity(geom.Vec3)
	Mass() float64
}

// pose reads the body's current pose.
func pose(body Body) geom.Pose {
	return geom.Pose{Position: body.Position(), Rotation: body.Rotation()}
}
