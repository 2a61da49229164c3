// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package geom provides the small amount of 3D math the synchronization
// layer needs: vectors, unit quaternions, and parent-relative poses for
// objects held by a controller.
//
// All types are plain values. Nothing here allocates.
package geom

import "math"

// Vec3 is a 3-component vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * factor.
func (v Vec3) Scale(factor float64) Vec3 {
	return Vec3{v.X * factor, v.Y * factor, v.Z * factor}
}

// Dot returns the dot product of v and other.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Length returns the Euclidean norm of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Quat is a rotation quaternion. The zero value is not a valid rotation;
// use Identity.
type Quat struct {
	X, Y, Z, W float64
}

// Identity returns the no-rotation quaternion.
func Identity() Quat {
	return Quat{W: 1}
}

// Mul returns the Hamilton product q * other (apply other, then q).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Conjugate returns the conjugate of q, which is its inverse when q is
// normalized.
func (q Quat) Conjugate() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Length returns the norm of q.
func (q Quat) Length() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalize returns q scaled to unit length. A zero quaternion
// normalizes to Identity.
func (q Quat) Normalize() Quat {
	length := q.Length()
	if length == 0 {
		return Identity()
	}
	return Quat{q.X / length, q.Y / length, q.Z / length, q.W / length}
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	p := Quat{X: v.X, Y: v.Y, Z: v.Z}
	r := q.Mul(p).Mul(q.Conjugate())
	return Vec3{r.X, r.Y, r.Z}
}

// AxisAngle returns the rotation of angle radians around axis. The
// axis does not need to be normalized; a zero axis yields Identity.
func AxisAngle(axis Vec3, angle float64) Quat {
	length := axis.Length()
	if length == 0 {
		return Identity()
	}
	half := angle / 2
	s := math.Sin(half) / length
	return Quat{axis.X * s, axis.Y * s, axis.Z * s, math.Cos(half)}
}

// ScaledAxis returns the rotation vector (axis * angle) that takes
// rotation from to rotation to. Dividing by elapsed time gives an
// angular velocity.
func ScaledAxis(from, to Quat) Vec3 {
	delta := to.Mul(from.Conjugate()).Normalize()
	if delta.W < 0 {
		delta = Quat{-delta.X, -delta.Y, -delta.Z, -delta.W}
	}
	sinHalf := math.Sqrt(delta.X*delta.X + delta.Y*delta.Y + delta.Z*delta.Z)
	if sinHalf < 1e-12 {
		return Vec3{}
	}
	angle := 2 * math.Atan2(sinHalf, delta.W)
	return Vec3{delta.X, delta.Y, delta.Z}.Scale(angle / sinHalf)
}

// Pose is a position and orientation.
type Pose struct {
	Position Vec3
	Rotation Quat
}

// Relative expresses child in the frame of parent: the returned pose,
// composed with parent, reproduces child.
func Relative(parent, child Pose) Pose {
	inverse := parent.Rotation.Conjugate()
	return Pose{
		Position: inverse.Rotate(child.Position.Sub(parent.Position)),
		Rotation: inverse.Mul(child.Rotation),
	}
}

// Compose places a parent-relative pose into the parent's frame.
func Compose(parent, relative Pose) Pose {
	return Pose{
		Position: parent.Position.Add(parent.Rotation.Rotate(relative.Position)),
		Rotation: parent.Rotation.Mul(relative.Rotation),
	}
}
