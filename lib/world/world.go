// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package world

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/peersync/lib/authority"
	"github.com/bureau-foundation/peersync/lib/geom"
	"github.com/bureau-foundation/peersync/lib/kinematics"
	"github.com/bureau-foundation/peersync/lib/replica"
	"github.com/bureau-foundation/peersync/lib/schedule"
)

// maxHandStep is the largest per-step hand movement treated as motion.
// Anything larger is a teleport and leaves the hand's velocity alone.
const maxHandStep = 0.1

// member ties a space index to its replicated entity.
type member struct {
	index      int
	controller *replica.Controller
	object     *replica.Object
}

// World assembles the registry, the physics stand-in, and the
// ownership arbiter for one peer. It is owned by the tick loop and not
// safe for concurrent use.
type World struct {
	logger    *slog.Logger
	initiator bool

	registry *replica.Registry
	space    *kinematics.Space
	arbiter  *authority.Arbiter

	controllers []*replica.Controller
	objects     []*replica.Object
	members     []member

	// Controller positions at the previous step.
	previous []geom.Vec3
}

// New builds the world from layout. initiator selects which controller
// is local and which objects this peer starts out owning.
func New(layout Layout, initiator bool, logger *slog.Logger) (*World, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid world layout: %w", err)
	}

	w := &World{
		logger:    logger,
		initiator: initiator,
		registry:  replica.NewRegistry(),
		space:     kinematics.NewSpace(),
		arbiter:   authority.NewArbiter(logger),
	}

	localID := 1
	if initiator {
		localID = 0
	}
	for id := range layout.Controllers {
		spawn := geom.Vec3{X: float64(id) - float64(layout.Controllers-1)/2, Y: 0.5}
		body := kinematics.NewKinematicSphere(spawn, layout.ControllerRadius, layout.ControllerMass)
		controller := replica.NewController(uint8(id), id == localID, body)
		if err := w.add(body, controller, nil); err != nil {
			return nil, err
		}
		w.controllers = append(w.controllers, controller)
		w.previous = append(w.previous, spawn)
	}

	for i, placement := range layout.Objects {
		body := kinematics.NewSphere(placement.Vec(), placement.Radius, placement.Mass)
		object := replica.NewObject(body, w.registry)
		object.SetAuthority(authority.Initial(i, initiator))
		if err := w.add(body, nil, object); err != nil {
			return nil, err
		}
		w.objects = append(w.objects, object)
	}

	logger.Info("world assembled",
		"controllers", len(w.controllers),
		"objects", len(w.objects),
		"initiator", initiator,
	)
	return w, nil
}

func (w *World) add(body *kinematics.Sphere, controller *replica.Controller, object *replica.Object) error {
	var entity replica.Entity = controller
	if object != nil {
		entity = object
	}
	index, err := w.registry.Register(entity)
	if err != nil {
		return fmt.Errorf("registering %s: %w", entity.Kind(), err)
	}
	w.space.Add(body)
	w.members = append(w.members, member{index: index, controller: controller, object: object})
	return nil
}

// Registry returns the entity registry.
func (w *World) Registry() *replica.Registry { return w.registry }

// Controllers returns the controllers in id order.
func (w *World) Controllers() []*replica.Controller { return w.controllers }

// Objects returns the shared objects in registration order.
func (w *World) Objects() []*replica.Object { return w.objects }

// Initiator reports which side of the session this world was built for.
func (w *World) Initiator() bool { return w.initiator }

// Local returns the controller this peer drives.
func (w *World) Local() *replica.Controller {
	for _, controller := range w.controllers {
		if controller.IsLocal() {
			return controller
		}
	}
	return nil
}

// MoveLocal places the local controller. Its velocity is derived on the
// next Step.
func (w *World) MoveLocal(pose geom.Pose) {
	local := w.Local()
	if local == nil {
		return
	}
	local.Body().SetPosition(pose.Position)
	local.Body().SetRotation(pose.Rotation)
}

// Step advances the world by dt seconds: physics first, then ownership
// arbitration from the contacts it reported, then per-object
// bookkeeping. The returned links are this tick's send-together
// relation in registration indices.
func (w *World) Step(dt float64) schedule.Links {
	for i, controller := range w.controllers {
		position := controller.Body().Position()
		delta := position.Sub(w.previous[i])
		if dt > 0 && delta.Length() <= maxHandStep {
			controller.Body().SetLinearVelocity(delta.Scale(1 / dt))
		}
		w.previous[i] = position
	}

	links := schedule.Links{}
	for _, contact := range w.space.Step(dt) {
		a, b := w.members[contact.A], w.members[contact.B]
		switch {
		case a.object != nil && b.object != nil:
			w.arbiter.Enqueue(authority.ObjectContact{A: a.object, B: b.object})
			links.Link(a.index, b.index)
		case a.controller != nil && b.object != nil:
			w.arbiter.Enqueue(authority.ControllerContact{Controller: a.controller, Target: b.object})
		case a.object != nil && b.controller != nil:
			w.arbiter.Enqueue(authority.ControllerContact{Controller: b.controller, Target: a.object})
		}
	}
	w.arbiter.Drain()

	for _, m := range w.members {
		if m.object == nil {
			continue
		}
		m.object.Step(dt)
		// Controllers register first, so a controller's id is also its
		// registration index.
		if grabber := m.object.Grabber(); grabber != nil {
			links.Link(m.index, int(grabber.ID()))
		}
	}
	return links
}

// GrabNearest makes controller grab the closest ungrabbed object it
// touches. Only the local controller can grab; the other peer's grabs
// arrive through Decode.
func (w *World) GrabNearest(controller *replica.Controller) (*replica.Object, bool) {
	if !controller.IsLocal() || w.Holding(controller) != nil {
		return nil, false
	}
	hand, ok := controller.Body().(*kinematics.Sphere)
	if !ok {
		return nil, false
	}

	var nearest *replica.Object
	best := 0.0
	for _, object := range w.objects {
		if object.Grabbed() {
			continue
		}
		body, ok := object.Body().(*kinematics.Sphere)
		if !ok || !kinematics.Touching(hand, body) {
			continue
		}
		distance := body.Position().Sub(hand.Position()).Length()
		if nearest == nil || distance < best {
			nearest, best = object, distance
		}
	}
	if nearest == nil {
		return nil, false
	}
	nearest.Grab(controller)
	w.logger.Debug("object grabbed", "controller", controller.ID())
	return nearest, true
}

// Holding returns the object controller holds, or nil.
func (w *World) Holding(controller *replica.Controller) *replica.Object {
	for _, object := range w.objects {
		if object.Grabber() == controller {
			return object
		}
	}
	return nil
}

// Release drops whatever controller holds.
func (w *World) Release(controller *replica.Controller) (*replica.Object, bool) {
	object := w.Holding(controller)
	if object == nil {
		return nil, false
	}
	object.Release()
	w.logger.Debug("object released", "controller", controller.ID())
	return object, true
}
