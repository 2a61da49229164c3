// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/peersync/lib/testutil"
)

// messagePipe is an in-memory stand-in for a detached data channel:
// each Write is delivered as one Read.
type messagePipe struct {
	messages  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newMessagePipe() *messagePipe {
	return &messagePipe{messages: make(chan []byte, 8), closed: make(chan struct{})}
}

func (p *messagePipe) Read(buffer []byte) (int, error) {
	select {
	case message := <-p.messages:
		if len(message) > len(buffer) {
			return 0, io.ErrShortBuffer
		}
		return copy(buffer, message), nil
	case <-p.closed:
		return 0, io.EOF
	}
}

func (p *messagePipe) Write(message []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	p.messages <- append([]byte(nil), message...)
	return len(message), nil
}

func (p *messagePipe) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func TestMessageConnPreservesBoundaries(t *testing.T) {
	conn := NewMessageConn(newMessagePipe(), "initiator/state", "peer/state")
	defer conn.Close()

	for _, message := range []string{"a", "bcd", "efgh"} {
		if _, err := conn.Write([]byte(message)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	buffer := make([]byte, 64)
	for _, want := range []string{"a", "bcd", "efgh"} {
		n, err := conn.Read(buffer)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(buffer[:n]) != want {
			t.Errorf("Read = %q, want %q", buffer[:n], want)
		}
	}
}

func TestMessageConnShortBuffer(t *testing.T) {
	conn := NewMessageConn(newMessagePipe(), "a", "b")
	defer conn.Close()
	conn.Write([]byte("too long"))
	if _, err := conn.Read(make([]byte, 2)); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Read err = %v, want io.ErrShortBuffer", err)
	}
}

func TestMessageConnAddresses(t *testing.T) {
	var conn net.Conn = NewMessageConn(newMessagePipe(), "initiator/state", "peer/state")
	if conn.LocalAddr().Network() != "webrtc" || conn.LocalAddr().String() != "initiator/state" {
		t.Errorf("LocalAddr = %v", conn.LocalAddr())
	}
	if conn.RemoteAddr().String() != "peer/state" {
		t.Errorf("RemoteAddr = %v", conn.RemoteAddr())
	}
}

func TestMessageConnReadDeadline(t *testing.T) {
	conn := NewMessageConn(newMessagePipe(), "a", "b")
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(20 * time.Millisecond)) //nolint:realclock net.Conn deadline
	result := make(chan error, 1)
	go func() {
		_, err := conn.Read(make([]byte, 8))
		result <- err
	}()
	if err := testutil.RequireReceive(t, result, 5*time.Second, "blocked Read"); err == nil {
		t.Error("Read succeeded after the deadline closed the channel")
	}
}

func TestMessageConnPastDeadlineClosesImmediately(t *testing.T) {
	pipe := newMessagePipe()
	conn := NewMessageConn(pipe, "a", "b")
	conn.SetDeadline(time.Now().Add(-time.Second)) //nolint:realclock net.Conn deadline
	testutil.RequireClosed(t, pipe.closed, time.Second, "channel closed by expired deadline")

	// Clearing after expiry does not reopen.
	conn.SetDeadline(time.Time{})
	if _, err := conn.Write([]byte{1}); err == nil {
		t.Error("Write succeeded on an expired connection")
	}
}
