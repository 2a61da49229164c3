// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package kinematics is a minimal sphere integrator that stands in for
// a physics engine in tests and the headless peer.
//
// It integrates gravity and damping, keeps spheres above a floor, and
// resolves sphere overlaps with an impulse along the contact normal.
// Kinematic spheres (player hands) are positioned externally and act as
// infinitely heavy. [Space.Step] returns the touching pairs so the
// caller can turn them into ownership events and send-together links.
// Accuracy is not a goal.
package kinematics
