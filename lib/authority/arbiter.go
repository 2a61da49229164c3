// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import "log/slog"

// Contender is an entity whose ownership the arbiter may transfer.
type Contender interface {
	HasAuthority() bool
	TakeAuthority()
	Grabbed() bool
	// Momentum is the kinetic indicator compared when two contenders
	// collide: linear speed times mass.
	Momentum() float64
}

// Holder is the controller side of a controller contact.
type Holder interface {
	IsLocal() bool
}

// Event is a collision reported by the physics collaborator. The two
// concrete kinds are ControllerContact and ObjectContact.
type Event interface {
	isEvent()
}

// ControllerContact reports that a controller touches a contender. A
// local controller touching an ungrabbed contender takes it over.
type ControllerContact struct {
	Controller Holder
	Target     Contender
}

// ObjectContact reports that two contenders touch. The pair is
// evaluated in both directions.
type ObjectContact struct {
	A, B Contender
}

func (ControllerContact) isEvent() {}
func (ObjectContact) isEvent()     {}

// Arbiter decides ownership transfers from collision events. Physics
// callbacks only Enqueue; the tick loop calls Drain at a fixed point so
// arbitration never runs in the middle of a physics step.
//
// Arbiter is not safe for concurrent use. It belongs to the tick loop.
type Arbiter struct {
	queue  []Event
	logger *slog.Logger
}

// NewArbiter returns an empty arbiter.
func NewArbiter(logger *slog.Logger) *Arbiter {
	return &Arbiter{logger: logger}
}

// Enqueue records a collision for the next Drain.
func (a *Arbiter) Enqueue(event Event) {
	a.queue = append(a.queue, event)
}

// Pending returns the number of queued events.
func (a *Arbiter) Pending() int {
	return len(a.queue)
}

// Drain applies every queued event in arrival order and empties the
// queue. It returns the number of ownership transfers performed.
func (a *Arbiter) Drain() int {
	transfers := 0
	for _, event := range a.queue {
		switch e := event.(type) {
		case ControllerContact:
			if e.Controller.IsLocal() && !e.Target.Grabbed() {
				if !e.Target.HasAuthority() {
					transfers++
				}
				e.Target.TakeAuthority()
			}
		case ObjectContact:
			if push(e.A, e.B) {
				transfers++
			}
			if push(e.B, e.A) {
				transfers++
			}
		}
	}
	if transfers > 0 {
		a.logger.Debug("authority transferred", "events", len(a.queue), "transfers", transfers)
	}
	clear(a.queue)
	a.queue = a.queue[:0]
	return transfers
}

// push hands ownership of other to the owner of pusher when pusher is
// owned here, moving at least as hard, and other is not held.
func push(pusher, other Contender) bool {
	if !pusher.HasAuthority() || other.Grabbed() {
		return false
	}
	if pusher.Momentum() < other.Momentum() {
		return false
	}
	taken := !other.HasAuthority()
	other.TakeAuthority()
	return taken
}
