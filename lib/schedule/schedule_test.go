// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"errors"
	"slices"
	"testing"
)

func candidates(priorities []int, lengths []int) []Candidate {
	result := make([]Candidate, len(priorities))
	for i := range priorities {
		result[i] = Candidate{Index: i, Priority: priorities[i], Length: lengths[i]}
	}
	return result
}

func TestSelectGreedyStopsAtBudget(t *testing.T) {
	scheduler := New(45, 2000)
	plan, err := scheduler.Select(candidates([]int{10, 8, 6, 4}, []int{20, 20, 20, 20}), nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if want := []int{0, 1}; !slices.Equal(plan.Selected, want) {
		t.Errorf("Selected = %v, want %v", plan.Selected, want)
	}
	if plan.Bytes != 1+21+21 {
		t.Errorf("Bytes = %d, want 43", plan.Bytes)
	}
}

func TestSelectOrdersByPriorityNotRegistration(t *testing.T) {
	scheduler := New(45, 2000)
	plan, err := scheduler.Select(candidates([]int{4, 6, 10, 8}, []int{20, 20, 20, 20}), nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if want := []int{2, 3}; !slices.Equal(plan.Selected, want) {
		t.Errorf("Selected = %v, want %v", plan.Selected, want)
	}
}

func TestSelectSkipsNegativePriority(t *testing.T) {
	scheduler := New(1000, 2000)
	plan, err := scheduler.Select(candidates([]int{-1, 0, -5, 3}, []int{4, 4, 4, 4}), nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if want := []int{1, 3}; !slices.Equal(plan.Selected, want) {
		t.Errorf("Selected = %v, want %v", plan.Selected, want)
	}
}

func TestSelectTieBreakByRegistration(t *testing.T) {
	scheduler := New(10, 2000)
	plan, err := scheduler.Select(candidates([]int{5, 5, 5}, []int{4, 4, 4}), nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if want := []int{0, 1}; !slices.Equal(plan.Selected, want) {
		t.Errorf("Selected = %v, want %v", plan.Selected, want)
	}
}

func TestSelectExpandsTransitiveClosure(t *testing.T) {
	// A-B-C chain where only A is independently selectable.
	scheduler := New(25, 2000)
	links := Links{}
	links.Link(0, 1)
	links.Link(1, 2)

	plan, err := scheduler.Select(candidates([]int{9, -1, -1, -1}, []int{20, 20, 20, 20}), links)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if want := []int{0, 1, 2}; !slices.Equal(plan.Selected, want) {
		t.Errorf("Selected = %v, want %v", plan.Selected, want)
	}
	if plan.Greedy != 1 || plan.Expanded != 2 {
		t.Errorf("Greedy = %d, Expanded = %d, want 1 and 2", plan.Greedy, plan.Expanded)
	}
	if plan.Bytes <= scheduler.Budget {
		t.Errorf("expansion should exceed the budget, Bytes = %d", plan.Bytes)
	}
}

func TestSelectExpansionOverCeiling(t *testing.T) {
	scheduler := New(50, 60)
	links := Links{}
	links.Link(0, 1)
	links.Link(0, 2)

	plan, err := scheduler.Select(candidates([]int{1, -1, -1}, []int{30, 30, 30}), links)
	if !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("err = %v, want ErrPacketTooLarge", err)
	}
	if len(plan.Selected) != 3 {
		t.Errorf("Selected = %v, want all three reported", plan.Selected)
	}
}

func TestLinksSymmetricAndDeduplicated(t *testing.T) {
	links := Links{}
	links.Link(1, 2)
	links.Link(2, 1)
	links.Link(3, 3)

	if got := links.Neighbors(1); !slices.Equal(got, []int{2}) {
		t.Errorf("Neighbors(1) = %v, want [2]", got)
	}
	if got := links.Neighbors(2); !slices.Equal(got, []int{1}) {
		t.Errorf("Neighbors(2) = %v, want [1]", got)
	}
	if got := links.Neighbors(3); len(got) != 0 {
		t.Errorf("Neighbors(3) = %v, want none", got)
	}
}
