// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var _ Signaler = (*WebSocketSignaler)(nil)

// WebSocketSignaler talks to the pairing relay. The relay forwards
// every text message verbatim to the other client, so apart from the
// greeting everything received is a SignalMessage.
type WebSocketSignaler struct {
	conn   *websocket.Conn
	logger *slog.Logger

	// gorilla allows one concurrent writer.
	writeMu sync.Mutex
	closeMu sync.Once
}

// DialWebSocket connects to the relay at url.
func DialWebSocket(ctx context.Context, url string, logger *slog.Logger) (*WebSocketSignaler, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing relay %s: %w", url, err)
	}
	logger.Info("connected to relay", "url", url)
	return &WebSocketSignaler{conn: conn, logger: logger}, nil
}

// Join reads the relay's greeting. A relay that already has two peers
// closes the connection instead of greeting.
func (s *WebSocketSignaler) Join(ctx context.Context) (Role, error) {
	data, err := s.read(ctx)
	if err != nil {
		return 0, fmt.Errorf("waiting for relay greeting: %w", err)
	}
	switch string(data) {
	case GreetingInitiator:
		return RoleInitiator, nil
	case GreetingResponder:
		return RoleResponder, nil
	default:
		return 0, fmt.Errorf("transport: unexpected relay greeting %q", data)
	}
}

func (s *WebSocketSignaler) Send(ctx context.Context, message SignalMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", message.Type, err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(deadline)
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("sending %s: %w", message.Type, err)
	}
	return nil
}

// Receive returns the next signaling message. Text that does not
// decode as one is logged and skipped.
func (s *WebSocketSignaler) Receive(ctx context.Context) (SignalMessage, error) {
	for {
		data, err := s.read(ctx)
		if err != nil {
			return SignalMessage{}, err
		}
		var message SignalMessage
		if err := json.Unmarshal(data, &message); err != nil {
			s.logger.Warn("ignoring malformed signaling message", "error", err, "bytes", len(data))
			continue
		}
		return message, nil
	}
}

// read returns the next text message. gorilla reads do not take a
// context, so cancellation closes the connection.
func (s *WebSocketSignaler) read(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %w", ErrSignalerClosed, err)
		}
		if kind == websocket.TextMessage {
			return data, nil
		}
	}
}

// Close sends a close frame and drops the connection. The relay
// resets when either peer leaves, so callers close only once the data
// channel is up or the attempt failed.
func (s *WebSocketSignaler) Close() error {
	var err error
	s.closeMu.Do(func() {
		s.writeMu.Lock()
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
