// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schedule decides which entities go into the next outgoing
// packet.
//
// Selection runs in two phases. The greedy phase takes entities in
// descending priority order (ties by registration index) while the
// running size, one skip byte plus the payload per entity, stays within
// the budget, and stops at the first entity that would overflow it. The
// expansion phase then adds every entity reachable through the
// send-together [Links] from a selected entity, regardless of budget:
// touching objects sent in different packets visibly tear apart on the
// other peer.
//
// Expansion can push a packet past any sensible size. A plan larger
// than MaxPacket is reported as [ErrPacketTooLarge], which the session
// treats as fatal.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Default byte limits. DefaultBudget fits the local controller and
// three objects of the standard layout per packet.
const (
	DefaultBudget    = 120
	DefaultMaxPacket = 2000
)

// ErrPacketTooLarge means the selected entities do not fit the hard
// packet ceiling. This is a configuration error (too many always-sent
// entities or an oversized send-together group), not a runtime event.
var ErrPacketTooLarge = errors.New("schedule: packet exceeds maximum size")

// Candidate is one registered entity as seen by the scheduler.
type Candidate struct {
	// Index is the registration index.
	Index int
	// Priority orders candidates; negative means never send.
	Priority int
	// Length is the entity's fixed payload length in bytes.
	Length int
}

// Links is the symmetric send-together relation for one tick.
type Links map[int][]int

// Link records that a and b must travel together.
func (l Links) Link(a, b int) {
	if a == b {
		return
	}
	if !slices.Contains(l[a], b) {
		l[a] = append(l[a], b)
	}
	if !slices.Contains(l[b], a) {
		l[b] = append(l[b], a)
	}
}

// Neighbors returns the entities linked to index.
func (l Links) Neighbors(index int) []int {
	return l[index]
}

// Plan is the outcome of one selection.
type Plan struct {
	// Selected holds registration indices in ascending order.
	Selected []int
	// Bytes is the encoded packet size: one skip byte and the payload
	// per selected entity, plus the terminator.
	Bytes int
	// Greedy is the number of entities chosen by priority before
	// expansion.
	Greedy int
	// Expanded is the number of entities added by send-together links.
	Expanded int
}

// Scheduler holds the per-tick byte limits.
type Scheduler struct {
	// Budget is the soft size target for the greedy phase.
	Budget int
	// MaxPacket is the hard ceiling for the final plan.
	MaxPacket int
}

// New returns a Scheduler with the given limits. Non-positive values
// select the defaults.
func New(budget, maxPacket int) *Scheduler {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if maxPacket <= 0 {
		maxPacket = DefaultMaxPacket
	}
	return &Scheduler{Budget: budget, MaxPacket: maxPacket}
}

// Select picks the entities for the next packet. candidates must be in
// registration order with Index equal to the slice position; links may
// be nil.
func (s *Scheduler) Select(candidates []Candidate, links Links) (Plan, error) {
	ranked := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Priority >= 0 {
			ranked = append(ranked, candidate)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority > ranked[j].Priority
	})

	selected := make(map[int]bool, len(ranked))
	used := 0
	for _, candidate := range ranked {
		cost := 1 + candidate.Length
		if used+cost > s.Budget {
			break
		}
		used += cost
		selected[candidate.Index] = true
	}

	plan := Plan{Greedy: len(selected)}

	// Depth-first closure over the send-together relation.
	stack := make([]int, 0, len(selected))
	for index := range selected {
		stack = append(stack, index)
	}
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, neighbor := range links.Neighbors(index) {
			if neighbor < 0 || neighbor >= len(candidates) || selected[neighbor] {
				continue
			}
			selected[neighbor] = true
			plan.Expanded++
			stack = append(stack, neighbor)
		}
	}

	plan.Selected = make([]int, 0, len(selected))
	for index := range selected {
		plan.Selected = append(plan.Selected, index)
	}
	slices.Sort(plan.Selected)

	plan.Bytes = 1
	for _, index := range plan.Selected {
		plan.Bytes += 1 + candidates[index].Length
	}
	if plan.Bytes > s.MaxPacket {
		return plan, fmt.Errorf("%w: %d bytes for %d entities (limit %d)",
			ErrPacketTooLarge, plan.Bytes, len(plan.Selected), s.MaxPacket)
	}
	return plan, nil
}
