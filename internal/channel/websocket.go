// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/companion-tui/internal/connection"
	"github.com/jeranaias/companion-tui/internal/events"
)

// =============================================================================
// WEBSOCKET ADAPTER
// =============================================================================

// WebSocketAdapter carries events over a single WebSocket. Latency is
// measured from ping/pong round trips.
type WebSocketAdapter struct {
	opts    Options
	dialer  *websocket.Dialer
	limiter *rate.Limiter

	mu      sync.Mutex // guards conn and cancel
	writeMu sync.Mutex // serializes data frames
	conn    *websocket.Conn
	cancel  context.CancelFunc

	closed    atomic.Bool
	latencyMs atomic.Int64
}

// NewWebSocket creates an unconnected WebSocket adapter.
func NewWebSocket(opts Options) *WebSocketAdapter {
	opts = opts.withDefaults()
	return &WebSocketAdapter{
		opts: opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.WriteTimeout,
			Proxy:            websocket.DefaultDialer.Proxy,
		},
		limiter: newDialLimiter(opts),
	}
}

// Connect implements Adapter.
func (a *WebSocketAdapter) Connect(ctx context.Context, l Listener) error {
	if a.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	return reconnect(ctx, a.opts, a.limiter, l, func(ctx context.Context) (bool, error) {
		return a.session(ctx, l)
	})
}

func (a *WebSocketAdapter) session(ctx context.Context, l Listener) (bool, error) {
	conn, _, err := a.dialer.DialContext(ctx, a.opts.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", a.opts.URL, err)
	}

	conn.SetPongHandler(func(payload string) error {
		sent, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil
		}
		d := time.Since(time.Unix(0, sent))
		a.latencyMs.Store(d.Milliseconds())
		l.HandleLatency(d)
		return nil
	})

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	log.Info().Str("url", a.opts.URL).Msg("WEBSOCKET CONNECTED")
	l.HandleState(connection.StateConnected)

	done := make(chan struct{})
	defer func() {
		close(done)
		a.mu.Lock()
		a.conn = nil
		a.mu.Unlock()
		a.latencyMs.Store(0)
		conn.Close()
	}()

	go a.keepAlive(ctx, conn, done)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, fmt.Errorf("read: %w", err)
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		l.HandleFrame(data)
	}
}

// keepAlive pings immediately and then every PingInterval. It also closes
// the connection when ctx ends so the read loop returns.
func (a *WebSocketAdapter) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(a.opts.PingInterval)
	defer ticker.Stop()

	ping := func() bool {
		payload := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
		if err := conn.WriteControl(websocket.PingMessage, payload, time.Now().Add(a.opts.WriteTimeout)); err != nil {
			log.Debug().Err(err).Msg("PING FAILED")
			return false
		}
		return true
	}

	if !ping() {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			return
		case <-ticker.C:
			if !ping() {
				return
			}
		}
	}
}

// Send implements Adapter.
func (a *WebSocketAdapter) Send(ctx context.Context, msg events.Outbound) error {
	if a.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode outbound: %w", err)
	}

	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(a.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// IsConnected implements Adapter.
func (a *WebSocketAdapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil
}

// LatencyMs implements Adapter.
func (a *WebSocketAdapter) LatencyMs() int64 {
	return a.latencyMs.Load()
}

// Close stops Connect and refuses further sends.
func (a *WebSocketAdapter) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}
