// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package channeltest provides an in-memory channel adapter for tests.
package channeltest

import (
	"context"
	"sync"
	"time"

	"github.com/jeranaias/companion-tui/internal/channel"
	"github.com/jeranaias/companion-tui/internal/connection"
	"github.com/jeranaias/companion-tui/internal/events"
)

// Fake is a scriptable channel.Adapter. Tests drive inbound traffic with
// Emit, Latency and SetState and inspect outbound traffic with Sent.
type Fake struct {
	mu        sync.Mutex
	listener  channel.Listener
	connected bool
	latency   time.Duration
	sent      []events.Outbound
	sendErr   error
	closed    chan struct{}
	closeOnce sync.Once
}

var _ channel.Adapter = (*Fake)(nil)

// NewFake returns a disconnected fake.
func NewFake() *Fake {
	return &Fake{closed: make(chan struct{})}
}

// Connect reports connecting then connected and blocks until ctx is done or
// Close is called.
func (f *Fake) Connect(ctx context.Context, l channel.Listener) error {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()

	f.SetState(connection.StateConnecting)
	f.SetState(connection.StateConnected)

	select {
	case <-ctx.Done():
	case <-f.closed:
	}
	f.SetState(connection.StateDisconnected)
	return nil
}

// Attach sets the listener without blocking, for tests that do not run Connect.
func (f *Fake) Attach(l channel.Listener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}

// SetState records the state and forwards it to the listener.
func (f *Fake) SetState(s connection.State) {
	f.mu.Lock()
	f.connected = s == connection.StateConnected
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l.HandleState(s)
	}
}

// Emit delivers a raw inbound frame.
func (f *Fake) Emit(frame string) {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l.HandleFrame([]byte(frame))
	}
}

// Latency delivers a latency sample.
func (f *Fake) Latency(d time.Duration) {
	f.mu.Lock()
	f.latency = d
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l.HandleLatency(d)
	}
}

// FailSends makes every later Send return err. Pass nil to recover.
func (f *Fake) FailSends(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

// Sent returns a copy of every successfully sent message.
func (f *Fake) Sent() []events.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Outbound(nil), f.sent...)
}

func (f *Fake) Send(_ context.Context, msg events.Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return channel.ErrNotConnected
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *Fake) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Fake) LatencyMs() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latency.Milliseconds()
}

func (f *Fake) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}
