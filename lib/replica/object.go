// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/peersync/lib/authority"
	"github.com/bureau-foundation/peersync/lib/geom"
	"github.com/bureau-foundation/peersync/lib/wire"
)

// ObjectKind is the manifest kind of an Object.
const ObjectKind = "object"

// NoGrabber is the grabber id sent for an object nobody holds.
const NoGrabber uint8 = 123

// Quantization ranges for object payloads.
const (
	PositionRange = 5
	RotationRange = 1
	VelocityRange = 100
)

// takePriority is the floor applied to the priority counter when this
// peer takes an object, so a fresh owner announces itself promptly.
const takePriority = 10

// ErrUnknownController is returned when a payload names a grabber id
// that is not a registered controller.
var ErrUnknownController = errors.New("replica: unknown controller")

// ControllerLookup resolves grabber ids carried on the wire.
type ControllerLookup interface {
	Controller(id uint8) (*Controller, bool)
}

// Object is a shared physics object with distributed ownership. The
// owning peer simulates it and publishes its state; the other peer
// applies what it receives.
type Object struct {
	body        Body
	controllers ControllerLookup

	state    authority.State
	priority int

	grabber  *Controller
	relative geom.Pose

	// Pose at the previous Step, used to derive velocities while held.
	previous geom.Pose
}

// NewObject returns an unowned, ungrabbed object. controllers resolves
// grabber ids during Decode.
func NewObject(body Body, controllers ControllerLookup) *Object {
	return &Object{
		body:        body,
		controllers: controllers,
		state:       authority.State{Local: 0, Remote: 1},
		previous:    pose(body),
	}
}

func (o *Object) Kind() string { return ObjectKind }

// Body returns the physics collaborator.
func (o *Object) Body() Body { return o.body }

// Authority returns the current ownership counters.
func (o *Object) Authority() authority.State { return o.state }

// SetAuthority replaces the ownership counters. Used once at session
// start to apply the initial assignment.
func (o *Object) SetAuthority(state authority.State) { o.state = state }

// HasAuthority reports whether this peer owns the object.
func (o *Object) HasAuthority() bool { return o.state.HasAuthority() }

// TakeAuthority claims the object for this peer.
func (o *Object) TakeAuthority() {
	o.state.Take()
	o.priority = max(o.priority, takePriority)
}

// Grabbed reports whether any controller holds the object.
func (o *Object) Grabbed() bool { return o.grabber != nil }

// Grabber returns the holding controller, or nil.
func (o *Object) Grabber() *Controller { return o.grabber }

// Momentum is linear speed times mass.
func (o *Object) Momentum() float64 {
	return o.body.LinearVelocity().Length() * o.body.Mass()
}

// Priority returns the scheduling counter: it grows every tick the
// object is owned and unsent, and is -1 while the other peer owns it.
func (o *Object) Priority() int { return o.priority }

// Sent resets the priority counter after the object went out in a
// packet.
func (o *Object) Sent() { o.priority = 0 }

// Grab attaches the object to c and takes ownership unconditionally.
// The current offset from c is kept for as long as the grab lasts.
func (o *Object) Grab(c *Controller) {
	o.grabber = c
	o.TakeAuthority()
	o.relative = geom.Relative(c.Pose(), pose(o.body))
}

// Release detaches the object. Ownership is unchanged.
func (o *Object) Release() {
	o.grabber = nil
}

// Step advances the per-tick bookkeeping. While held, the body is
// snapped to the grabber and its velocities are derived from the pose
// change over dt seconds, overriding whatever the physics did.
func (o *Object) Step(dt float64) {
	if o.state.HasAuthority() {
		o.priority++
	} else {
		o.priority = -1
	}

	if o.grabber == nil {
		o.previous = pose(o.body)
		return
	}

	current := geom.Compose(o.grabber.Pose(), o.relative)
	o.body.SetPosition(current.Position)
	o.body.SetRotation(current.Rotation)
	if dt > 0 {
		o.body.SetLinearVelocity(current.Position.Sub(o.previous.Position).Scale(1 / dt))
		o.body.SetAngularVelocity(geom.ScaledAxis(o.previous.Rotation, current.Rotation).Scale(1 / dt))
	}
	o.previous = current
}

// Encode writes the object payload. Velocities are snapped to their
// quantized values so both peers continue from identical state.
func (o *Object) Encode(w *wire.Writer) {
	w.WriteUint8(o.state.Local)
	grabber := NoGrabber
	current := pose(o.body)
	if o.grabber != nil {
		grabber = o.grabber.ID()
		current = o.relative
	}
	w.WriteUint8(grabber)
	w.WriteVector3Q(current.Position, PositionRange)
	w.WriteQuaternionQ(current.Rotation, RotationRange)
	linear := w.WriteVector3Q(o.body.LinearVelocity(), VelocityRange)
	angular := w.WriteVector3Q(o.body.AngularVelocity(), VelocityRange)
	if w.Measuring() {
		return
	}
	o.body.SetLinearVelocity(linear)
	o.body.SetAngularVelocity(angular)
}

// Decode records the other peer's ownership counter and, if that makes
// the other peer the owner, applies the rest of the payload. An owned
// object stops after the counter. A rejected payload leaves the object
// and its ownership unchanged.
func (o *Object) Decode(r *wire.Reader) error {
	remote := r.ReadUint8()
	if err := r.Err(); err != nil {
		return fmt.Errorf("decoding object authority: %w", err)
	}
	next := o.state
	next.Observe(remote)
	if next.HasAuthority() {
		o.state = next
		return nil
	}

	id := r.ReadUint8()
	position := r.ReadVector3Q(PositionRange)
	rotation := r.ReadQuaternionQ(RotationRange).Normalize()
	linear := r.ReadVector3Q(VelocityRange)
	angular := r.ReadVector3Q(VelocityRange)
	if err := r.Err(); err != nil {
		return fmt.Errorf("decoding object state: %w", err)
	}

	var grabber *Controller
	if id != NoGrabber {
		controller, ok := o.controllers.Controller(id)
		if !ok {
			return fmt.Errorf("%w: grabber id %d", ErrUnknownController, id)
		}
		grabber = controller
	}
	o.state = next
	o.grabber = grabber

	received := geom.Pose{Position: position, Rotation: rotation}
	if grabber != nil {
		o.relative = received
		received = geom.Compose(grabber.Pose(), received)
	}
	o.body.SetPosition(received.Position)
	o.body.SetRotation(received.Rotation)
	o.body.SetLinearVelocity(linear)
	o.body.SetAngularVelocity(angular)
	o.previous = received
	return nil
}
