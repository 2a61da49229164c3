// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

// Modulus is the range of an authority counter. Counters live in
// [0, Modulus) and are compared cyclically.
const Modulus = 200

// HalfWindow is the raw difference beyond which the numerically smaller
// counter is treated as having wrapped past the larger one.
const HalfWindow = Modulus / 2

// Ahead reports whether local is not behind remote in cyclic order.
//
// When the raw difference exceeds HalfWindow the smaller counter is
// lifted by Modulus before comparing. This is a heuristic: with 8-bit
// counters and fast takeover exchanges, a peer that falls more than
// HalfWindow bumps behind is misread as being ahead.
func Ahead(local, remote uint8) bool {
	l, r := int(local), int(remote)
	if r < l-HalfWindow {
		r += Modulus
	} else if l < r-HalfWindow {
		l += Modulus
	}
	return l >= r
}

// Next returns the counter value one step ahead of counter.
func Next(counter uint8) uint8 {
	return uint8((int(counter) + 1) % Modulus)
}

// State is one entity's pair of authority counters: the value this
// peer publishes and the last value the other peer published.
type State struct {
	Local  uint8
	Remote uint8
}

// Initial returns the starting state for the object at position index
// in the object list. Ownership alternates so that each peer starts out
// owning half of the shared objects.
func Initial(index int, initiator bool) State {
	owned := index%2 == 0
	if !initiator {
		owned = !owned
	}
	if owned {
		return State{Local: 1, Remote: 0}
	}
	return State{Local: 0, Remote: 1}
}

// HasAuthority reports whether this peer currently owns the entity.
func (s State) HasAuthority() bool {
	return Ahead(s.Local, s.Remote)
}

// Take claims ownership by publishing a counter one past the remote's.
func (s *State) Take() {
	s.Local = Next(s.Remote)
}

// Observe records a counter value received from the other peer. Values
// outside [0, Modulus) are folded into range.
func (s *State) Observe(remote uint8) {
	s.Remote = uint8(int(remote) % Modulus)
}
