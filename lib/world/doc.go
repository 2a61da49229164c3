// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package world assembles one peer's replicated scene from a [Layout].
//
// Controllers are registered first, in id order, then objects in layout
// order, so two peers built from the same layout hold identical
// registries. Each [World.Step] runs the physics stand-in, turns the
// reported contacts into lib/authority events and send-together links,
// drains the arbiter, and advances every object's bookkeeping. A
// grabbed object is always linked to its grabber.
package world
