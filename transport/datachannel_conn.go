// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"net"
	"sync"
	"time"
)

var _ net.Conn = (*MessageConn)(nil)

// MessageConn adapts a detached data channel to net.Conn. Unlike a
// stream, every Write is one message and every Read returns exactly
// one message; a buffer too small for the next message fails with
// io.ErrShortBuffer.
//
// Deadlines close the channel when they fire, which unblocks pending
// I/O and leaves the connection unusable, as net.Pipe does.
type MessageConn struct {
	rwc    io.ReadWriteCloser
	local  string
	remote string

	mu      sync.Mutex
	timers  [2]*time.Timer // read, write
	expired bool
}

const (
	readTimer = iota
	writeTimer
)

// NewMessageConn wraps a detached data channel. The labels name the
// two endpoints in LocalAddr and RemoteAddr.
func NewMessageConn(rwc io.ReadWriteCloser, local, remote string) *MessageConn {
	return &MessageConn{rwc: rwc, local: local, remote: remote}
}

func (c *MessageConn) Read(message []byte) (int, error)  { return c.rwc.Read(message) }
func (c *MessageConn) Write(message []byte) (int, error) { return c.rwc.Write(message) }

func (c *MessageConn) Close() error {
	c.mu.Lock()
	for i := range c.timers {
		c.disarm(i)
	}
	c.mu.Unlock()
	return c.rwc.Close()
}

func (c *MessageConn) LocalAddr() net.Addr  { return channelAddr(c.local) }
func (c *MessageConn) RemoteAddr() net.Addr { return channelAddr(c.remote) }

func (c *MessageConn) SetDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arm(readTimer, deadline)
	c.arm(writeTimer, deadline)
	return nil
}

func (c *MessageConn) SetReadDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arm(readTimer, deadline)
	return nil
}

func (c *MessageConn) SetWriteDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arm(writeTimer, deadline)
	return nil
}

// arm replaces timer i with one firing at deadline. A zero deadline
// only clears it. Called with mu held.
func (c *MessageConn) arm(i int, deadline time.Time) {
	c.disarm(i)
	if deadline.IsZero() || c.expired {
		return
	}
	wait := time.Until(deadline) //nolint:realclock net.Conn deadlines are wall-clock times
	if wait <= 0 {
		c.expire()
		return
	}
	c.timers[i] = time.AfterFunc(wait, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.expire()
	})
}

// disarm stops timer i. Called with mu held.
func (c *MessageConn) disarm(i int) {
	if c.timers[i] != nil {
		c.timers[i].Stop()
		c.timers[i] = nil
	}
}

// expire closes the channel once. Called with mu held.
func (c *MessageConn) expire() {
	if c.expired {
		return
	}
	c.expired = true
	c.rwc.Close()
}

// channelAddr names a data channel endpoint.
type channelAddr string

func (a channelAddr) Network() string { return "webrtc" }
func (a channelAddr) String() string  { return string(a) }
