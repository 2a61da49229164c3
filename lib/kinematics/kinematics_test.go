// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kinematics

import (
	"math"
	"testing"

	"github.com/bureau-foundation/peersync/lib/geom"
)

func TestTouching(t *testing.T) {
	a := NewSphere(geom.Vec3{}, 0.5, 1)
	b := NewSphere(geom.Vec3{X: 1}, 0.5, 1)
	c := NewSphere(geom.Vec3{X: 1.01}, 0.5, 1)
	if !Touching(a, b) {
		t.Error("spheres at exactly the summed radius should touch")
	}
	if Touching(a, c) {
		t.Error("separated spheres reported touching")
	}
}

func TestFloorStopsFall(t *testing.T) {
	space := NewSpace()
	ball := NewSphere(geom.Vec3{Y: 1}, 0.25, 1)
	space.Add(ball)
	for range 500 {
		space.Step(0.01)
	}
	if got := ball.Position().Y; math.Abs(got-0.25) > 0.01 {
		t.Errorf("resting height = %v, want 0.25", got)
	}
}

func TestCollisionTransfersMomentum(t *testing.T) {
	space := &Space{Restitution: 1}
	moving := NewSphere(geom.Vec3{Y: 5}, 0.5, 1)
	resting := NewSphere(geom.Vec3{X: 0.95, Y: 5}, 0.5, 1)
	moving.SetLinearVelocity(geom.Vec3{X: 2})
	space.Add(moving)
	space.Add(resting)

	contacts := space.Step(0.001)
	if len(contacts) != 1 || contacts[0] != (Contact{A: 0, B: 1}) {
		t.Fatalf("contacts = %v, want one 0-1 contact", contacts)
	}
	// Equal masses with perfect restitution swap velocities.
	if got := resting.LinearVelocity().X; math.Abs(got-2) > 1e-9 {
		t.Errorf("resting ball velocity = %v, want 2", got)
	}
	if got := moving.LinearVelocity().X; math.Abs(got) > 1e-9 {
		t.Errorf("moving ball velocity = %v, want 0", got)
	}
}

func TestKinematicSphereIsNotPushed(t *testing.T) {
	space := &Space{Restitution: 0.5}
	hand := NewKinematicSphere(geom.Vec3{}, 0.5, 1)
	ball := NewSphere(geom.Vec3{X: 0.9}, 0.5, 1)
	hand.SetLinearVelocity(geom.Vec3{X: 1})
	hand.Impulse(geom.Vec3{X: 100})
	space.Add(hand)
	space.Add(ball)

	space.Step(0.001)
	if hand.Position() != (geom.Vec3{}) {
		t.Errorf("hand moved to %v", hand.Position())
	}
	if hand.LinearVelocity() != (geom.Vec3{X: 1}) {
		t.Errorf("hand velocity changed to %v", hand.LinearVelocity())
	}
	if ball.LinearVelocity().X <= 0 {
		t.Errorf("ball velocity = %v, want pushed along +X", ball.LinearVelocity())
	}
}

func TestAngularIntegration(t *testing.T) {
	space := &Space{}
	spinner := NewSphere(geom.Vec3{Y: 10}, 0.5, 1)
	spinner.SetAngularVelocity(geom.Vec3{Y: math.Pi})
	space.Add(spinner)
	for range 100 {
		space.Step(0.005)
	}
	// Half a second at pi rad/s is a quarter turn about Y.
	got := spinner.Rotation().Rotate(geom.Vec3{X: 1})
	if math.Abs(got.Z+1) > 1e-6 {
		t.Errorf("rotated X axis = %v, want -Z", got)
	}
}
