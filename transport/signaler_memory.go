// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"sync"
)

var _ Signaler = (*MemorySignaler)(nil)

// MemorySignaler is one end of an in-process signaling pair for tests.
type MemorySignaler struct {
	role    Role
	inbox   chan SignalMessage
	outbox  chan SignalMessage
	closed  chan struct{}
	peer    *MemorySignaler
	closeMu sync.Once
}

// NewMemorySignalerPair returns two connected signalers. The first
// joins as the initiator.
func NewMemorySignalerPair() (*MemorySignaler, *MemorySignaler) {
	toResponder := make(chan SignalMessage, 4)
	toInitiator := make(chan SignalMessage, 4)
	initiator := &MemorySignaler{
		role:   RoleInitiator,
		inbox:  toInitiator,
		outbox: toResponder,
		closed: make(chan struct{}),
	}
	responder := &MemorySignaler{
		role:   RoleResponder,
		inbox:  toResponder,
		outbox: toInitiator,
		closed: make(chan struct{}),
	}
	initiator.peer, responder.peer = responder, initiator
	return initiator, responder
}

func (s *MemorySignaler) Join(ctx context.Context) (Role, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.role, nil
}

func (s *MemorySignaler) Send(ctx context.Context, message SignalMessage) error {
	select {
	case s.outbox <- message:
		return nil
	case <-s.closed:
		return ErrSignalerClosed
	case <-s.peer.closed:
		return ErrSignalerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MemorySignaler) Receive(ctx context.Context) (SignalMessage, error) {
	select {
	case message := <-s.inbox:
		return message, nil
	case <-s.closed:
		return SignalMessage{}, ErrSignalerClosed
	case <-s.peer.closed:
		return SignalMessage{}, ErrSignalerClosed
	case <-ctx.Done():
		return SignalMessage{}, ctx.Err()
	}
}

func (s *MemorySignaler) Close() error {
	s.closeMu.Do(func() { close(s.closed) })
	return nil
}
