// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jitter

import (
	"bytes"
	"errors"
	"testing"
)

func payload(tick uint32) []byte {
	return []byte{byte(tick)}
}

func TestLatestAppliesNewestOnce(t *testing.T) {
	buffer := New(Config{})
	if _, _, ok := buffer.Next(); ok {
		t.Fatal("Next on an empty buffer returned a frame")
	}

	buffer.Store(1, payload(1))
	buffer.Store(3, payload(3))
	buffer.Store(2, payload(2))

	tick, data, ok := buffer.Next()
	if !ok || tick != 3 || !bytes.Equal(data, payload(3)) {
		t.Fatalf("Next = %d, %x, %v, want tick 3", tick, data, ok)
	}
	if _, _, ok := buffer.Next(); ok {
		t.Error("the same frame was applied twice")
	}

	// A late, older frame never replaces what was applied.
	buffer.Store(2, payload(2))
	if _, _, ok := buffer.Next(); ok {
		t.Error("an older frame was applied")
	}

	buffer.Store(4, payload(4))
	if tick, _, ok := buffer.Next(); !ok || tick != 4 {
		t.Errorf("Next = %d, %v, want tick 4", tick, ok)
	}
}

func TestStoreKeepsNewerSlotContents(t *testing.T) {
	buffer := New(Config{Length: 20, Delay: 10})
	buffer.Store(25, payload(25))
	buffer.Store(5, payload(5))

	stats := buffer.Stats()
	if stats.Stale != 1 || stats.Stored != 1 {
		t.Errorf("Stored = %d, Stale = %d, want 1 and 1", stats.Stored, stats.Stale)
	}
	if max, ok := buffer.Max(); !ok || max != 25 {
		t.Errorf("Max = %d, %v, want 25", max, ok)
	}
}

func TestAdaptiveSteadyStream(t *testing.T) {
	buffer := New(Config{Length: 20, Delay: 10, Pacing: PacingAdaptive})
	for tick := uint32(0); tick <= 10; tick++ {
		buffer.Store(tick, payload(tick))
	}

	for want := uint32(0); want < 50; want++ {
		tick, _, ok := buffer.Next()
		if !ok || tick != want {
			t.Fatalf("Next = %d, %v, want tick %d", tick, ok, want)
		}
		buffer.Store(want+11, payload(want+11))
	}

	stats := buffer.Stats()
	if stats.SkipAheads != 0 || stats.Repeats != 0 || stats.Missing != 0 {
		t.Errorf("steady stream stats = %+v", stats)
	}
}

func TestAdaptiveSkipsAheadAfterBurst(t *testing.T) {
	buffer := New(Config{Length: 20, Delay: 10, Pacing: PacingAdaptive})
	for tick := uint32(0); tick <= 10; tick++ {
		buffer.Store(tick, payload(tick))
	}
	if tick, _, ok := buffer.Next(); !ok || tick != 0 {
		t.Fatalf("first Next = %d, %v", tick, ok)
	}

	for tick := uint32(11); tick <= 40; tick++ {
		buffer.Store(tick, payload(tick))
	}
	for range 100 {
		tick, _, ok := buffer.Next()
		if buffer.Stats().SkipAheads == 1 {
			if !ok || tick != 30 {
				t.Fatalf("after skip-ahead Next = %d, %v, want tick 30", tick, ok)
			}
			return
		}
	}
	t.Fatalf("no skip-ahead, stats = %+v", buffer.Stats())
}

func TestAdaptiveRepeatsWhenStarved(t *testing.T) {
	buffer := New(Config{Length: 20, Delay: 10, Pacing: PacingAdaptive})
	for tick := uint32(0); tick <= 10; tick++ {
		buffer.Store(tick, payload(tick))
	}
	for range 40 {
		buffer.Next()
	}
	stats := buffer.Stats()
	if stats.Repeats == 0 {
		t.Errorf("no repeat after starvation, stats = %+v", stats)
	}
	if stats.Missing == 0 {
		t.Errorf("Missing = 0 after starvation")
	}
}

func TestAdaptiveWaitsForFutureFrame(t *testing.T) {
	buffer := New(Config{Length: 20, Delay: 10, Pacing: PacingAdaptive})
	// Tick 1 is lost.
	buffer.Store(0, payload(0))
	for tick := uint32(2); tick <= 10; tick++ {
		buffer.Store(tick, payload(tick))
	}
	if tick, _, ok := buffer.Next(); !ok || tick != 0 {
		t.Fatalf("first Next = %d, %v, want tick 0", tick, ok)
	}

	// Tick 21 lands in the slot tick 1 would have used.
	for tick := uint32(11); tick <= 21; tick++ {
		buffer.Store(tick, payload(tick))
	}
	if tick, _, ok := buffer.Next(); ok {
		t.Fatalf("Next at tick 1 = %d, want no frame", tick)
	}

	applied := make(map[uint32]int)
	for want := uint32(2); want <= 21; want++ {
		tick, _, ok := buffer.Next()
		if !ok || tick != want {
			t.Fatalf("Next = %d, %v, want tick %d", tick, ok, want)
		}
		applied[tick]++
	}
	if applied[21] != 1 {
		t.Errorf("tick 21 applied %d times, want once", applied[21])
	}
	if stats := buffer.Stats(); stats.Missing != 1 || stats.Repeats != 0 {
		t.Errorf("Missing = %d, Repeats = %d, want 1 and 0", stats.Missing, stats.Repeats)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "defaults", config: Config{}},
		{name: "explicit", config: Config{Length: 8, Delay: 3}},
		{name: "delay fills ring", config: Config{Length: 4, Delay: 4}, wantErr: true},
		{name: "default delay exceeds length", config: Config{Length: 5}, wantErr: true},
		{name: "delay exceeds default length", config: Config{Delay: 30}, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.config.Validate()
			if test.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate(%+v) = %v, want ErrInvalidConfig", test.config, err)
			}
			if !test.wantErr && err != nil {
				t.Errorf("Validate(%+v) = %v, want nil", test.config, err)
			}
		})
	}
}

func TestParsePacing(t *testing.T) {
	tests := []struct {
		value   string
		want    Pacing
		wantErr bool
	}{
		{value: "", want: PacingLatest},
		{value: "latest", want: PacingLatest},
		{value: "adaptive", want: PacingAdaptive},
		{value: "fastest", wantErr: true},
	}
	for _, test := range tests {
		got, err := ParsePacing(test.value)
		if (err != nil) != test.wantErr {
			t.Errorf("ParsePacing(%q) err = %v, wantErr %v", test.value, err, test.wantErr)
			continue
		}
		if err == nil && got != test.want {
			t.Errorf("ParsePacing(%q) = %s, want %s", test.value, got, test.want)
		}
	}
}
