// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kinematics

import (
	"github.com/bureau-foundation/peersync/lib/geom"
)

// Contact is a touching pair found during a step, as indices into the
// space in insertion order with A < B.
type Contact struct {
	A, B int
}

// Space integrates a set of spheres above a flat floor.
type Space struct {
	Gravity geom.Vec3
	// Floor is the height of the ground plane.
	Floor float64
	// Restitution is the bounciness of every collision, 0..1.
	Restitution float64
	// Damping is the fraction of velocity lost per second.
	Damping float64

	bodies []*Sphere
}

// NewSpace returns a space with earth gravity and mild damping.
func NewSpace() *Space {
	return &Space{
		Gravity:     geom.Vec3{Y: -9.81},
		Floor:       0,
		Restitution: 0.2,
		Damping:     0.5,
	}
}

// Add inserts a sphere and returns its index.
func (s *Space) Add(body *Sphere) int {
	s.bodies = append(s.bodies, body)
	return len(s.bodies) - 1
}

// Body returns the sphere at index.
func (s *Space) Body(index int) *Sphere { return s.bodies[index] }

// Len returns the number of spheres.
func (s *Space) Len() int { return len(s.bodies) }

// Step integrates every dynamic sphere by dt seconds, resolves floor
// and sphere collisions, and returns the pairs that touched.
func (s *Space) Step(dt float64) []Contact {
	for _, body := range s.bodies {
		body.integrate(dt, s.Gravity, s.Damping)
		s.floor(body)
	}

	var contacts []Contact
	for i := 0; i < len(s.bodies); i++ {
		for j := i + 1; j < len(s.bodies); j++ {
			a, b := s.bodies[i], s.bodies[j]
			if !Touching(a, b) {
				continue
			}
			contacts = append(contacts, Contact{A: i, B: j})
			s.resolve(a, b)
		}
	}
	return contacts
}

func (s *Space) floor(body *Sphere) {
	if body.kinematic {
		return
	}
	lowest := s.Floor + body.radius
	if body.position.Y >= lowest {
		return
	}
	body.position.Y = lowest
	if body.linear.Y < 0 {
		body.linear.Y = -body.linear.Y * s.Restitution
	}
}

// resolve separates two overlapping spheres and exchanges momentum
// along the contact normal.
func (s *Space) resolve(a, b *Sphere) {
	inverseA, inverseB := a.inverseMass(), b.inverseMass()
	total := inverseA + inverseB
	if total == 0 {
		return
	}

	offset := b.position.Sub(a.position)
	distance := offset.Length()
	normal := geom.Vec3{Y: 1}
	if distance > 0 {
		normal = offset.Scale(1 / distance)
	}

	if overlap := a.radius + b.radius - distance; overlap > 0 {
		a.position = a.position.Sub(normal.Scale(overlap * inverseA / total))
		b.position = b.position.Add(normal.Scale(overlap * inverseB / total))
	}

	approach := b.linear.Sub(a.linear).Dot(normal)
	if approach >= 0 {
		return
	}
	impulse := -(1 + s.Restitution) * approach / total
	a.Impulse(normal.Scale(-impulse * inverseA))
	b.Impulse(normal.Scale(impulse * inverseB))
}
