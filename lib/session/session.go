// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/peersync/lib/capture"
	"github.com/bureau-foundation/peersync/lib/clock"
	"github.com/bureau-foundation/peersync/lib/jitter"
	"github.com/bureau-foundation/peersync/lib/packet"
	"github.com/bureau-foundation/peersync/lib/replica"
	"github.com/bureau-foundation/peersync/lib/schedule"
	"github.com/bureau-foundation/peersync/lib/world"
)

// ErrManifestMismatch means the other peer built a different registry.
// Nothing it sends could be interpreted, so the session ends.
var ErrManifestMismatch = errors.New("session: peer registry does not match")

// Sender delivers one data-channel message to the other peer. Delivery
// may be lossy and unordered.
type Sender interface {
	Send(data []byte) error
}

// Recorder receives a copy of every frame sent and received.
type Recorder interface {
	Record(tick uint32, direction capture.Direction, frame []byte) error
}

// Config tunes the tick loop.
type Config struct {
	// TickInterval is the simulation step; it is also the physics dt.
	TickInterval time.Duration
	// FramesPerUpdate sends state every Nth tick.
	FramesPerUpdate int
	// Budget and MaxPacket bound the outgoing packet in bytes.
	Budget    int
	MaxPacket int
	Jitter    jitter.Config
}

// DefaultConfig runs at 60 ticks per second and sends every tick.
func DefaultConfig() Config {
	return Config{
		TickInterval:    time.Second / 60,
		FramesPerUpdate: 1,
		Budget:          schedule.DefaultBudget,
		MaxPacket:       packet.DefaultMaxPacket,
		Jitter:          jitter.Config{Length: jitter.DefaultLength, Delay: jitter.DefaultDelay},
	}
}

// Stats counts session activity.
type Stats struct {
	Ticks          uint64
	FramesSent     uint64
	SendErrors     uint64
	BytesSent      uint64
	FramesReceived uint64
	// Dropped counts received frames discarded before the handshake or
	// because they could not be parsed or applied.
	Dropped  uint64
	Applied  uint64
	Expanded uint64
}

// Session runs the per-tick synchronization loop for one peer.
//
// Tick and Run belong to one goroutine. Deliver is called from the
// transport's receive callback; it only parses and stores, and never
// touches the world.
type Session struct {
	logger   *slog.Logger
	clock    clock.Clock
	config   Config
	world    *world.World
	sender   Sender
	recorder Recorder
	input    func(w *world.World, tick uint32)

	scheduler *schedule.Scheduler
	assembler *packet.Assembler
	buffer    *jitter.Buffer

	manifest      replica.Manifest
	manifestFrame []byte

	mu sync.Mutex
	// tick is written only by the tick loop, under mu.
	tick uint32
	// verified is set once the peer's manifest matched ours; state
	// frames are dropped until then.
	verified bool
	// peerState is set once a state frame arrived, which proves the
	// peer verified our manifest and manifests can stop.
	peerState bool
	fatal     error
	stats     Stats
}

// Option customizes a Session.
type Option func(*Session)

// WithRecorder captures every frame sent and received.
func WithRecorder(recorder Recorder) Option {
	return func(s *Session) { s.recorder = recorder }
}

// WithInput sets a function called at the start of every tick, before
// the world steps. It drives the local controller: grip position,
// rotation and squeeze.
func WithInput(input func(w *world.World, tick uint32)) Option {
	return func(s *Session) { s.input = input }
}

// New prepares a session over an assembled world.
func New(w *world.World, sender Sender, clk clock.Clock, config Config, logger *slog.Logger, options ...Option) (*Session, error) {
	if config.TickInterval <= 0 {
		return nil, fmt.Errorf("session: tick interval must be positive, got %s", config.TickInterval)
	}
	if config.FramesPerUpdate <= 0 {
		config.FramesPerUpdate = 1
	}
	if err := config.Jitter.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	manifest, err := w.Registry().Manifest()
	if err != nil {
		return nil, fmt.Errorf("building manifest: %w", err)
	}
	manifestFrame, err := packet.EncodeManifestFrame(manifest)
	if err != nil {
		return nil, err
	}

	s := &Session{
		logger:        logger,
		clock:         clk,
		config:        config,
		world:         w,
		sender:        sender,
		scheduler:     schedule.New(config.Budget, config.MaxPacket),
		assembler:     packet.NewAssembler(w.Registry(), config.MaxPacket),
		buffer:        jitter.New(config.Jitter),
		manifest:      manifest,
		manifestFrame: manifestFrame,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// Manifest returns this peer's registry manifest.
func (s *Session) Manifest() replica.Manifest { return s.manifest }

// Verified reports whether the peer's manifest has been checked.
func (s *Session) Verified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verified
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// JitterStats returns the receive buffer's counters.
func (s *Session) JitterStats() jitter.Stats { return s.buffer.Stats() }

// Deliver accepts one message from the transport. The payload is kept
// by the jitter buffer, so the caller must not reuse it.
func (s *Session) Deliver(data []byte) {
	frame, err := packet.ParseFrame(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.FramesReceived++
	s.record(s.tick, capture.Inbound, data)

	if err != nil {
		s.stats.Dropped++
		s.logger.Warn("dropping unparseable frame", "error", err, "bytes", len(data))
		return
	}

	switch frame.Kind {
	case packet.FrameManifest:
		s.deliverManifest(frame)
	case packet.FrameState:
		if !s.verified {
			s.stats.Dropped++
			return
		}
		s.peerState = true
		s.buffer.Store(frame.Tick, frame.Payload)
	}
}

// deliverManifest checks the peer's manifest. Called with mu held.
func (s *Session) deliverManifest(frame packet.Frame) {
	if s.verified || s.fatal != nil {
		return
	}
	remote, err := frame.Manifest()
	if err != nil {
		s.fatal = fmt.Errorf("%w: %w", ErrManifestMismatch, err)
		return
	}
	if err := s.manifest.Compare(remote); err != nil {
		s.fatal = fmt.Errorf("%w: %w", ErrManifestMismatch, err)
		return
	}
	s.verified = true
	s.logger.Info("peer manifest verified", "entities", len(remote.Entries))
}

// record forwards a frame to the recorder. Called with mu held.
func (s *Session) record(tick uint32, direction capture.Direction, frame []byte) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(tick, direction, frame); err != nil {
		s.logger.Warn("capture failed", "error", err)
	}
}

// Tick runs one simulation step: advance the world, send this peer's
// state if due, then apply the frame the jitter buffer releases. A
// returned error is fatal to the session.
func (s *Session) Tick() error {
	s.mu.Lock()
	fatal, verified, peerState := s.fatal, s.verified, s.peerState
	s.mu.Unlock()
	if fatal != nil {
		return fatal
	}

	if s.input != nil {
		s.input(s.world, s.tick)
	}
	links := s.world.Step(s.config.TickInterval.Seconds())

	if !peerState {
		s.send(s.manifestFrame)
	}
	if verified && int(s.tick)%s.config.FramesPerUpdate == 0 {
		if err := s.sendState(links); err != nil {
			return err
		}
	}

	if _, payload, ok := s.buffer.Next(); ok {
		s.apply(payload)
	}

	s.mu.Lock()
	s.stats.Ticks++
	s.tick++
	s.mu.Unlock()
	return nil
}

func (s *Session) sendState(links schedule.Links) error {
	registry := s.world.Registry()
	candidates := make([]schedule.Candidate, registry.Len())
	for i, record := range registry.Records() {
		candidates[i] = schedule.Candidate{
			Index:    i,
			Priority: record.Entity.Priority(),
			Length:   record.Length,
		}
	}

	plan, err := s.scheduler.Select(candidates, links)
	if err != nil {
		return fmt.Errorf("scheduling tick %d: %w", s.tick, err)
	}
	data, err := s.assembler.Encode(plan.Selected)
	if err != nil {
		return fmt.Errorf("encoding tick %d: %w", s.tick, err)
	}
	for _, index := range plan.Selected {
		if sent, ok := registry.Entity(index).(interface{ Sent() }); ok {
			sent.Sent()
		}
	}

	frame := packet.EncodeStateFrame(s.tick, data)
	s.mu.Lock()
	s.stats.Expanded += uint64(plan.Expanded)
	s.mu.Unlock()
	s.send(frame)
	return nil
}

// send hands a frame to the transport. The channel is unreliable, so a
// failed send is counted and otherwise ignored.
func (s *Session) send(frame []byte) {
	err := s.sender.Send(frame)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(s.tick, capture.Outbound, frame)
	if err != nil {
		s.stats.SendErrors++
		if s.stats.SendErrors == 1 || s.stats.SendErrors%100 == 0 {
			s.logger.Warn("send failed", "error", err, "failures", s.stats.SendErrors)
		}
		return
	}
	s.stats.FramesSent++
	s.stats.BytesSent += uint64(len(frame))
}

func (s *Session) apply(payload []byte) {
	_, err := s.assembler.Decode(payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.stats.Dropped++
		s.logger.Warn("dropping undecodable state packet", "error", err, "tick", s.tick)
		return
	}
	s.stats.Applied++
}

// Run ticks on the session clock until ctx is cancelled or a tick
// fails. Cancellation is a normal stop and returns nil.
func (s *Session) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	s.logger.Info("session running",
		"tick_interval", s.config.TickInterval,
		"frames_per_update", s.config.FramesPerUpdate,
		"initiator", s.world.Initiator(),
	)
	for {
		select {
		case <-ctx.Done():
			stats := s.Stats()
			s.logger.Info("session stopped",
				"ticks", stats.Ticks,
				"frames_sent", stats.FramesSent,
				"frames_received", stats.FramesReceived,
				"dropped", stats.Dropped,
			)
			return nil
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				s.logger.Error("session failed", "error", err, "tick", s.tick)
				return err
			}
		}
	}
}
