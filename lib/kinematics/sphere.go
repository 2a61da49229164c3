// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kinematics

import (
	"github.com/bureau-foundation/peersync/lib/geom"
	"github.com/bureau-foundation/peersync/lib/replica"
)

var _ replica.Body = (*Sphere)(nil)

// Sphere is a rigid ball. A kinematic sphere is positioned by its owner
// (a player's hand) and only pushes others; it is never moved by
// integration or collisions.
type Sphere struct {
	position geom.Vec3
	rotation geom.Quat
	linear   geom.Vec3
	angular  geom.Vec3

	mass      float64
	radius    float64
	kinematic bool
}

// NewSphere returns a dynamic sphere at rest.
func NewSphere(position geom.Vec3, radius, mass float64) *Sphere {
	return &Sphere{position: position, rotation: geom.Identity(), radius: radius, mass: mass}
}

// NewKinematicSphere returns a sphere that is moved only by SetPosition.
func NewKinematicSphere(position geom.Vec3, radius, mass float64) *Sphere {
	sphere := NewSphere(position, radius, mass)
	sphere.kinematic = true
	return sphere
}

func (s *Sphere) Position() geom.Vec3            { return s.position }
func (s *Sphere) SetPosition(v geom.Vec3)        { s.position = v }
func (s *Sphere) Rotation() geom.Quat            { return s.rotation }
func (s *Sphere) SetRotation(q geom.Quat)        { s.rotation = q.Normalize() }
func (s *Sphere) LinearVelocity() geom.Vec3      { return s.linear }
func (s *Sphere) SetLinearVelocity(v geom.Vec3)  { s.linear = v }
func (s *Sphere) AngularVelocity() geom.Vec3     { return s.angular }
func (s *Sphere) SetAngularVelocity(v geom.Vec3) { s.angular = v }
func (s *Sphere) Mass() float64                  { return s.mass }

// Radius returns the collision radius.
func (s *Sphere) Radius() float64 { return s.radius }

// Kinematic reports whether the sphere ignores integration.
func (s *Sphere) Kinematic() bool { return s.kinematic }

// Impulse changes the linear velocity by dv. Kinematic spheres ignore
// impulses.
func (s *Sphere) Impulse(dv geom.Vec3) {
	if s.kinematic {
		return
	}
	s.linear = s.linear.Add(dv)
}

// inverseMass is zero for kinematic spheres, which behave as infinitely
// heavy in collisions.
func (s *Sphere) inverseMass() float64 {
	if s.kinematic || s.mass <= 0 {
		return 0
	}
	return 1 / s.mass
}

// integrate advances a dynamic sphere by dt seconds.
func (s *Sphere) integrate(dt float64, gravity geom.Vec3, damping float64) {
	if s.kinematic {
		return
	}
	s.linear = s.linear.Add(gravity.Scale(dt)).Scale(1 - damping*dt)
	s.angular = s.angular.Scale(1 - damping*dt)
	s.position = s.position.Add(s.linear.Scale(dt))
	if speed := s.angular.Length(); speed > 0 {
		step := geom.AxisAngle(s.angular.Scale(1/speed), speed*dt)
		s.rotation = step.Mul(s.rotation).Normalize()
	}
}

// Touching reports whether two spheres intersect or touch.
func Touching(a, b *Sphere) bool {
	reach := a.radius + b.radius
	offset := b.position.Sub(a.position)
	return offset.Dot(offset) <= reach*reach
}
