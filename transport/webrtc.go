// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/peersync/lib/netutil"
)

// ChannelLabel names the one data channel a session uses.
const ChannelLabel = "state"

// maxMessage bounds a single received message. State frames are far
// smaller; manifests for large layouts are the biggest messages.
const maxMessage = 64 * 1024

// ErrNotOpen is returned by Send before the data channel opened or
// after the peer closed.
var ErrNotOpen = errors.New("transport: data channel not open")

// Peer is an established WebRTC connection with its unreliable,
// unordered state channel.
type Peer struct {
	role       Role
	connection *webrtc.PeerConnection
	logger     *slog.Logger

	conn    *MessageConn
	opened  chan struct{}
	handler atomic.Pointer[func([]byte)]

	done      chan struct{}
	closeOnce sync.Once
}

// Connect joins the relay through signaler and establishes the peer
// connection. The initiator opens the data channel and sends the offer;
// the responder answers. Connect returns once the data channel is open,
// or with ctx's error when ctx ends first.
//
// Candidates are gathered completely before the SDP is sent.
func Connect(ctx context.Context, signaler Signaler, ice ICEConfig, logger *slog.Logger) (*Peer, error) {
	role, err := signaler.Join(ctx)
	if err != nil {
		return nil, fmt.Errorf("joining relay: %w", err)
	}
	logger = logger.With("role", role.String())
	logger.Info("relay assigned role")

	connection, err := newPeerConnection(ice)
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}
	peer := &Peer{
		role:       role,
		connection: connection,
		logger:     logger,
		opened:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	connection.OnICEConnectionStateChange(peer.handleICEState)

	if role == RoleInitiator {
		err = peer.offer(ctx, signaler)
	} else {
		err = peer.answer(ctx, signaler)
	}
	if err != nil {
		peer.Close()
		return nil, err
	}

	select {
	case <-peer.opened:
		logger.Info("data channel open", "label", ChannelLabel)
		return peer, nil
	case <-peer.done:
		return nil, errors.New("transport: connection failed before the data channel opened")
	case <-ctx.Done():
		peer.Close()
		return nil, ctx.Err()
	}
}

// offer creates the state channel and runs the initiator's side of the
// exchange.
func (p *Peer) offer(ctx context.Context, signaler Signaler) error {
	ordered := false
	retransmits := uint16(0)
	channel, err := p.connection.CreateDataChannel(ChannelLabel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &retransmits,
	})
	if err != nil {
		return fmt.Errorf("creating data channel: %w", err)
	}
	channel.OnOpen(func() { p.attach(channel) })

	description, err := p.connection.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("creating SDP offer: %w", err)
	}
	local, err := p.gather(ctx, description)
	if err != nil {
		return err
	}
	if err := signaler.Send(ctx, SignalMessage{Type: SignalOffer, SDP: local}); err != nil {
		return fmt.Errorf("sending offer: %w", err)
	}
	p.logger.Info("offer sent")

	remote, err := receive(ctx, signaler, SignalAnswer, p.logger)
	if err != nil {
		return err
	}
	if err := p.connection.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: remote}); err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}
	return nil
}

// answer runs the responder's side and accepts the state channel.
func (p *Peer) answer(ctx context.Context, signaler Signaler) error {
	p.connection.OnDataChannel(func(channel *webrtc.DataChannel) {
		if channel.Label() != ChannelLabel {
			p.logger.Warn("closing unexpected data channel", "label", channel.Label())
			channel.Close()
			return
		}
		channel.OnOpen(func() { p.attach(channel) })
	})

	remote, err := receive(ctx, signaler, SignalOffer, p.logger)
	if err != nil {
		return err
	}
	if err := p.connection.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: remote}); err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}
	description, err := p.connection.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("creating SDP answer: %w", err)
	}
	local, err := p.gather(ctx, description)
	if err != nil {
		return err
	}
	if err := signaler.Send(ctx, SignalMessage{Type: SignalAnswer, SDP: local}); err != nil {
		return fmt.Errorf("sending answer: %w", err)
	}
	p.logger.Info("answer sent")
	return nil
}

// gather sets the local description and waits for candidate gathering
// to finish, returning the complete SDP.
func (p *Peer) gather(ctx context.Context, description webrtc.SessionDescription) (string, error) {
	complete := webrtc.GatheringCompletePromise(p.connection)
	if err := p.connection.SetLocalDescription(description); err != nil {
		return "", fmt.Errorf("setting local description: %w", err)
	}
	select {
	case <-complete:
		return p.connection.LocalDescription().SDP, nil
	case <-ctx.Done():
		return "", fmt.Errorf("gathering ICE candidates: %w", ctx.Err())
	}
}

// receive waits for a message of the wanted type, skipping others.
func receive(ctx context.Context, signaler Signaler, want string, logger *slog.Logger) (string, error) {
	for {
		message, err := signaler.Receive(ctx)
		if err != nil {
			return "", fmt.Errorf("waiting for %s: %w", want, err)
		}
		if message.Type == want {
			return message.SDP, nil
		}
		logger.Warn("ignoring signaling message", "type", message.Type, "want", want)
	}
}

// attach detaches the opened channel and starts the read loop.
func (p *Peer) attach(channel *webrtc.DataChannel) {
	raw, err := channel.Detach()
	if err != nil {
		p.logger.Error("detaching data channel failed", "error", err)
		p.Close()
		return
	}
	p.conn = NewMessageConn(raw, p.role.String()+"/"+ChannelLabel, "peer/"+ChannelLabel)
	close(p.opened)
	go p.readLoop()
}

func (p *Peer) readLoop() {
	buffer := make([]byte, maxMessage)
	for {
		n, err := p.conn.Read(buffer)
		if err != nil {
			select {
			case <-p.done:
			default:
				if netutil.IsExpectedCloseError(err) {
					p.logger.Info("data channel closed by peer")
				} else {
					p.logger.Warn("data channel read failed", "error", err)
				}
				p.Close()
			}
			return
		}
		if handler := p.handler.Load(); handler != nil {
			(*handler)(bytes.Clone(buffer[:n]))
		}
	}
}

func (p *Peer) handleICEState(state webrtc.ICEConnectionState) {
	p.logger.Info("ICE state change", "state", state.String())
	switch state {
	case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateClosed:
		p.Close()
	}
}

// Role returns the role the relay assigned.
func (p *Peer) Role() Role { return p.role }

// Initiator reports whether this peer sent the offer.
func (p *Peer) Initiator() bool { return p.role == RoleInitiator }

// OnMessage sets the function called with each received message, on
// the read loop's goroutine. Each call gets its own copy of the data.
// Messages arriving before a handler is set are dropped.
func (p *Peer) OnMessage(handler func([]byte)) {
	p.handler.Store(&handler)
}

// Send writes one message. Delivery is best effort: the channel neither
// retransmits nor orders.
func (p *Peer) Send(data []byte) error {
	select {
	case <-p.opened:
	default:
		return ErrNotOpen
	}
	select {
	case <-p.done:
		return ErrNotOpen
	default:
	}
	if _, err := p.conn.Write(data); err != nil {
		return fmt.Errorf("writing to data channel: %w", err)
	}
	return nil
}

// Done is closed when the connection ends.
func (p *Peer) Done() <-chan struct{} { return p.done }

// Close tears down the data channel and the peer connection.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		select {
		case <-p.opened:
			p.conn.Close()
		default:
		}
		err = p.connection.Close()
	})
	return err
}

// newPeerConnection creates a PeerConnection with detached data
// channels, so messages are read from a plain ReadWriteCloser, and with
// loopback candidates, so two peers on one host can connect.
func newPeerConnection(ice ICEConfig) (*webrtc.PeerConnection, error) {
	settings := webrtc.SettingEngine{}
	settings.DetachDataChannels()
	settings.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settings))
	return api.NewPeerConnection(webrtc.Configuration{ICEServers: ice.Servers})
}
