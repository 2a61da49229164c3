// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/peersync/lib/netutil"
	"github.com/bureau-foundation/peersync/transport"
)

// outboxSize bounds messages waiting for a slow client. A pairing
// exchanges a greeting, one offer and one answer, so this is never
// reached by a well-behaved peer.
const outboxSize = 32

const writeTimeout = 5 * time.Second

// Relay pairs exactly two WebSocket clients and forwards every message
// from one to the other unchanged.
//
// The first client is told to start a session; whatever it sends before
// a partner arrives is queued. The second client is told an offer is
// coming and receives the queue. A third client is turned away while a
// pair is connected. When either member of the pair disconnects, the
// other is disconnected too and the relay starts over empty.
type Relay struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	first  *client
	second *client
	queue  []message
}

type message struct {
	kind int
	data []byte
}

// client is one connected peer. Writes go through out so that a single
// goroutine owns the connection's write side.
type client struct {
	conn   *websocket.Conn
	out    chan message
	closed bool
}

// New returns an empty relay.
func New(logger *slog.Logger) *Relay {
	return &Relay{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			// Browsers and the peer binary connect from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs the client until it leaves.
func (r *Relay) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	conn, err := r.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err, "remote", request.RemoteAddr)
		return
	}

	c := &client{conn: conn, out: make(chan message, outboxSize)}
	if !r.admit(c) {
		r.logger.Info("relay full, rejecting client", "remote", request.RemoteAddr)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "session full"),
			time.Now().Add(time.Second)) //nolint:realclock websocket deadlines are wall-clock
		conn.Close()
		return
	}

	go c.writeLoop()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				r.logger.Warn("websocket read failed", "error", err, "remote", request.RemoteAddr)
			}
			break
		}
		r.forward(c, message{kind: kind, data: data})
	}
	r.leave(c)
}

// Clients returns how many clients are currently paired or waiting.
func (r *Relay) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	if r.first != nil {
		count++
	}
	if r.second != nil {
		count++
	}
	return count
}

func (r *Relay) admit(c *client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.first == nil:
		r.first = c
		r.send(c, message{kind: websocket.TextMessage, data: []byte(transport.GreetingInitiator)})
		r.logger.Info("first peer joined")
	case r.second == nil:
		r.second = c
		r.send(c, message{kind: websocket.TextMessage, data: []byte(transport.GreetingResponder)})
		for _, queued := range r.queue {
			r.send(c, queued)
		}
		r.logger.Info("second peer joined", "queued", len(r.queue))
		r.queue = nil
	default:
		return false
	}
	return true
}

func (r *Relay) forward(from *client, m message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch from {
	case r.first:
		if r.second == nil {
			r.queue = append(r.queue, m)
			return
		}
		r.send(r.second, m)
	case r.second:
		r.send(r.first, m)
	}
}

// leave tears the pair down when a member disconnects.
func (r *Relay) leave(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c != r.first && c != r.second {
		return
	}
	r.reset()
	r.logger.Info("peer left, relay reset")
}

// Close disconnects any connected clients and empties the relay. New
// clients can still join afterwards; stop the server first.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

// reset closes both members' outboxes. Called with mu held.
func (r *Relay) reset() {
	for _, member := range []*client{r.first, r.second} {
		if member != nil && !member.closed {
			member.closed = true
			close(member.out)
		}
	}
	r.first, r.second, r.queue = nil, nil, nil
}

// send queues m for c. Called with mu held.
func (r *Relay) send(c *client, m message) {
	if c.closed {
		return
	}
	select {
	case c.out <- m:
	default:
		r.logger.Warn("client outbox full, dropping message", "bytes", len(m.data))
	}
}

// writeLoop drains out, then closes the connection, which also ends
// the read loop in ServeHTTP.
func (c *client) writeLoop() {
	defer c.conn.Close()
	for m := range c.out {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:realclock websocket deadlines are wall-clock
		if err := c.conn.WriteMessage(m.kind, m.data); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
		time.Now().Add(time.Second)) //nolint:realclock websocket deadlines are wall-clock
}
