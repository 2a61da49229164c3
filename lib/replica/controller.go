// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"fmt"

	"github.com/bureau-foundation/peersync/lib/geom"
	"github.com/bureau-foundation/peersync/lib/wire"
)

// ControllerKind is the manifest kind of a Controller.
const ControllerKind = "controller"

// Controller is a player's hand or paddle. The local controller is
// driven by input and always sent; the remote one only mirrors what the
// other peer publishes.
type Controller struct {
	id    uint8
	local bool
	body  Body
}

// NewController returns a controller with the given wire id. id must
// not be NoGrabber.
func NewController(id uint8, local bool, body Body) *Controller {
	if id == NoGrabber {
		panic(fmt.Sprintf("replica: controller id %d is reserved", NoGrabber))
	}
	return &Controller{id: id, local: local, body: body}
}

// ID returns the wire id other entities use to refer to this controller.
func (c *Controller) ID() uint8 { return c.id }

// IsLocal reports whether this peer drives the controller.
func (c *Controller) IsLocal() bool { return c.local }

// Body returns the physics collaborator.
func (c *Controller) Body() Body { return c.body }

// Pose returns the controller's current world pose.
func (c *Controller) Pose() geom.Pose { return pose(c.body) }

func (c *Controller) Kind() string { return ControllerKind }

// Priority is 999 for the local controller and -1 for the remote one.
func (c *Controller) Priority() int {
	if c.local {
		return 999
	}
	return -1
}

// Encode writes position and rotation at full float32 precision.
func (c *Controller) Encode(w *wire.Writer) {
	w.WriteVector3(c.body.Position())
	w.WriteQuaternion(c.body.Rotation())
}

// Decode applies the received pose unless this peer owns the
// controller.
func (c *Controller) Decode(r *wire.Reader) error {
	position := r.ReadVector3()
	rotation := r.ReadQuaternion()
	if err := r.Err(); err != nil {
		return fmt.Errorf("decoding controller %d: %w", c.id, err)
	}
	if c.local {
		return nil
	}
	c.body.SetPosition(position)
	c.body.SetRotation(rotation)
	return nil
}
