// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"math"

	"github.com/bureau-foundation/peersync/lib/geom"
	"github.com/bureau-foundation/peersync/lib/world"
)

// autopilot drives the local hand when there is no tracked input. The
// hand sweeps a Lissajous path over the play area, grabs whatever it
// touches, carries it for a while and lets go.
//
// The two peers use different periods so their hands cross paths and
// contest objects instead of moving in lockstep.
type autopilot struct {
	// periodX and periodZ are in ticks per radian before speed applies.
	periodX, periodZ float64
	// extentX and extentZ are the sweep half-widths in meters.
	extentX, extentZ float64
	height           float64

	// holdTicks is how long an object is carried; cooldownTicks is how
	// long after a release before the hand grabs again.
	holdTicks, cooldownTicks uint32

	grabbedAt  uint32
	releasedAt uint32
	released   bool
}

const autopilotSpeed = 0.5

func newAutopilot(initiator bool) *autopilot {
	a := &autopilot{
		extentX:       2.5,
		extentZ:       0.5,
		height:        0.1,
		holdTicks:     120,
		cooldownTicks: 60,
	}
	if initiator {
		a.periodX, a.periodZ = 25, 17
	} else {
		a.periodX, a.periodZ = 18, 27
	}
	return a
}

// pose is the hand pose at tick.
func (a *autopilot) pose(tick uint32) geom.Pose {
	t := autopilotSpeed * float64(tick)
	return geom.Pose{
		Position: geom.Vec3{
			X: a.extentX * math.Sin(t/a.periodX),
			Y: a.height,
			Z: a.extentZ * math.Sin(t/a.periodZ),
		},
		Rotation: geom.AxisAngle(geom.Vec3{X: 1}, math.Sin(float64(tick)/20)),
	}
}

// step is a session input hook.
func (a *autopilot) step(w *world.World, tick uint32) {
	w.MoveLocal(a.pose(tick))

	hand := w.Local()
	if hand == nil {
		return
	}
	if w.Holding(hand) != nil {
		if tick-a.grabbedAt >= a.holdTicks {
			w.Release(hand)
			a.releasedAt, a.released = tick, true
		}
		return
	}
	if a.released && tick-a.releasedAt < a.cooldownTicks {
		return
	}
	if _, ok := w.GrabNearest(hand); ok {
		a.grabbedAt = tick
	}
}
