// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jitter

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidConfig means a Config cannot size a buffer.
var ErrInvalidConfig = errors.New("jitter: invalid buffer configuration")

// Pacing selects how Next advances through received ticks.
type Pacing int

const (
	// PacingLatest applies the newest received frame once and ignores
	// everything older.
	PacingLatest Pacing = iota
	// PacingAdaptive plays received frames back one tick at a time a
	// fixed delay behind the newest, skipping ahead or repeating a
	// frame when the rolling averages drift.
	PacingAdaptive
)

func (p Pacing) String() string {
	switch p {
	case PacingLatest:
		return "latest"
	case PacingAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("pacing(%d)", int(p))
	}
}

// ParsePacing converts a configuration value into a Pacing.
func ParsePacing(value string) (Pacing, error) {
	switch value {
	case "", "latest":
		return PacingLatest, nil
	case "adaptive":
		return PacingAdaptive, nil
	default:
		return 0, fmt.Errorf("jitter: unknown pacing %q (want latest or adaptive)", value)
	}
}

// Defaults for Config.
const (
	DefaultLength = 20
	DefaultDelay  = 10
)

// smoothing is the weight of the newest sample in both rolling
// averages.
const smoothing = 0.05

// Config sizes a Buffer.
type Config struct {
	// Length is the number of ring slots.
	Length int
	// Delay is how many ticks adaptive playback trails the newest
	// received tick.
	Delay int
	Pacing Pacing
}

// withDefaults replaces non-positive sizes with the defaults.
func (c Config) withDefaults() Config {
	if c.Length <= 0 {
		c.Length = DefaultLength
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	return c
}

// Validate checks the sizes New would use after filling in defaults.
// Playback trails the newest tick by Delay, so Delay must leave room in
// the ring.
func (c Config) Validate() error {
	resolved := c.withDefaults()
	if resolved.Delay >= resolved.Length {
		return fmt.Errorf("%w: delay %d must be shorter than the ring length %d",
			ErrInvalidConfig, resolved.Delay, resolved.Length)
	}
	return nil
}

// Stats is a snapshot of buffer health.
type Stats struct {
	AverageGap     float64
	AverageMissing float64
	// Stored counts accepted frames; Stale counts frames dropped
	// because their slot already held a newer tick.
	Stored uint64
	Stale  uint64
	// Applied counts frames returned by Next; Missing counts processing
	// points with no usable frame.
	Applied    uint64
	Missing    uint64
	SkipAheads uint64
	Repeats    uint64
}

type slot struct {
	tick    uint32
	payload []byte
	valid   bool
}

// Buffer is a fixed-size ring of received frames indexed by tick
// modulo Length. A frame overwrites its slot unless the slot already
// holds a newer tick, so superseded frames silently disappear.
//
// Store is called from the transport's receive callback and Next from
// the tick loop. All methods may be called concurrently.
type Buffer struct {
	mu     sync.Mutex
	config Config
	slots  []slot

	max  uint32
	seen bool

	// Latest pacing: the last tick returned.
	last    uint32
	applied bool

	// Adaptive pacing: the playback position, which may run behind
	// zero before enough frames arrived.
	current int64
	started bool

	stats Stats
}

// New returns an empty buffer. Non-positive sizes select the defaults.
// It panics on a config that Validate rejects.
func New(config Config) *Buffer {
	if err := config.Validate(); err != nil {
		panic(err.Error())
	}
	config = config.withDefaults()
	return &Buffer{config: config, slots: make([]slot, config.Length)}
}

func (b *Buffer) slotFor(tick int64) *slot {
	length := int64(len(b.slots))
	return &b.slots[((tick%length)+length)%length]
}

// Store records a frame received for tick. The buffer keeps payload
// without copying.
func (b *Buffer) Store(tick uint32, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	target := b.slotFor(int64(tick))
	if target.valid && target.tick > tick {
		b.stats.Stale++
		return
	}
	*target = slot{tick: tick, payload: payload, valid: true}
	b.stats.Stored++
	if !b.seen || tick > b.max {
		b.max = tick
		b.seen = true
	}
}

// Max returns the newest tick stored, and false before any frame.
func (b *Buffer) Max() (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max, b.seen
}

// Next returns the frame to apply at this processing point, if any.
func (b *Buffer) Next() (uint32, []byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.seen {
		return 0, nil, false
	}
	if b.config.Pacing == PacingAdaptive {
		return b.nextAdaptive()
	}

	if b.applied && b.max <= b.last {
		return 0, nil, false
	}
	newest := b.slotFor(int64(b.max))
	b.last = b.max
	b.applied = true
	b.stats.Applied++
	return newest.tick, newest.payload, true
}

func (b *Buffer) nextAdaptive() (uint32, []byte, bool) {
	delay := int64(b.config.Delay)
	if !b.started {
		b.current = int64(b.max) - delay
		b.started = true
	} else {
		b.current++
	}

	b.stats.AverageGap = (1-smoothing)*b.stats.AverageGap + smoothing*float64(int64(b.max)-b.current)
	if b.stats.AverageGap > 1.5*float64(delay) || b.stats.AverageGap < -5*float64(delay) {
		b.current = int64(b.max) - delay
		b.stats.AverageGap = float64(delay)
		b.stats.SkipAheads++
	}

	missing := 0.0
	if !b.usable(b.current) {
		missing = 1
		b.stats.Missing++
	}
	b.stats.AverageMissing = (1-smoothing)*b.stats.AverageMissing + smoothing*missing
	if b.stats.AverageMissing > 0.5 {
		b.stats.AverageMissing = 0
		b.current--
		b.stats.Repeats++
	}

	if !b.usable(b.current) {
		return 0, nil, false
	}
	frame := b.slotFor(b.current)
	b.stats.Applied++
	return frame.tick, frame.payload, true
}

// usable reports whether the slot for tick holds exactly that tick. A
// newer frame sharing the slot waits for playback to reach it.
func (b *Buffer) usable(tick int64) bool {
	candidate := b.slotFor(tick)
	return candidate.valid && int64(candidate.tick) == tick
}

// Stats returns a snapshot of the buffer counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
