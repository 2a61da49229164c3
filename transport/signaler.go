// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
)

// Role is which side of the session a peer plays. The initiator sends
// the SDP offer and opens the data channel; it also drives controller
// 0 and starts out owning the even-numbered objects.
type Role int

const (
	RoleInitiator Role = iota + 1
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Greetings the pairing relay sends to announce a role. They are
// matched verbatim.
const (
	GreetingInitiator = "go ahead and start a session"
	GreetingResponder = "somebody will offer you a session soon"
)

// ErrSignalerClosed is returned by a Signaler used after Close or after
// the other side went away.
var ErrSignalerClosed = errors.New("transport: signaler closed")

// Signaler carries the two-message SDP exchange between the peers.
// Candidates are gathered before anything is sent (vanilla ICE), so
// one offer and one answer complete the handshake.
type Signaler interface {
	// Join waits until the relay has assigned this peer a role.
	Join(ctx context.Context) (Role, error)

	// Send relays one message to the other peer.
	Send(ctx context.Context, message SignalMessage) error

	// Receive waits for the next message from the other peer.
	Receive(ctx context.Context) (SignalMessage, error)

	Close() error
}

// Message types.
const (
	SignalOffer  = "offer"
	SignalAnswer = "answer"
)

// SignalMessage is the JSON object relayed between the peers. Its
// shape matches a browser RTCSessionDescription.
type SignalMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}
