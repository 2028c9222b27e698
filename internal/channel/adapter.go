// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package channel provides the duplex transports that carry events between
// the client and the companion server.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/companion-tui/internal/connection"
	"github.com/jeranaias/companion-tui/internal/events"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConnected is returned by Send when no connection is open.
	ErrNotConnected = errors.New("channel not connected")
	// ErrClosed is returned when using an adapter after Close.
	ErrClosed = errors.New("channel closed")
	// ErrGaveUp is returned by Connect when the reconnect budget is spent.
	ErrGaveUp = errors.New("gave up reconnecting")
	// ErrUnknownTransport is returned by New for an unsupported transport name.
	ErrUnknownTransport = errors.New("unknown transport")
)

// =============================================================================
// INTERFACES
// =============================================================================

// Listener receives everything an adapter observes. Calls may arrive from
// the adapter's own goroutines.
type Listener interface {
	HandleFrame(frame []byte)
	HandleState(state connection.State)
	HandleLatency(d time.Duration)
}

// Adapter is a reconnecting duplex connection to the server.
type Adapter interface {
	// Connect dials and keeps the connection alive, reconnecting on loss,
	// until ctx is done, Close is called, or the attempt budget runs out.
	Connect(ctx context.Context, l Listener) error
	Send(ctx context.Context, msg events.Outbound) error
	IsConnected() bool
	LatencyMs() int64
	Close() error
}

// =============================================================================
// OPTIONS
// =============================================================================

// Transport names.
const (
	TransportWebSocket = "websocket"
	TransportSSE       = "sse"
)

// Options configures an adapter.
type Options struct {
	URL string
	// SendURL receives outbound events for the SSE transport. Defaults to URL.
	SendURL string

	PingInterval         time.Duration
	WriteTimeout         time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int // 0 means retry forever

	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 3 * time.Second
	}
	if o.SendURL == "" {
		o.SendURL = o.URL
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	return o
}

// New builds an adapter for the named transport.
func New(transport string, opts Options) (Adapter, error) {
	switch strings.ToLower(transport) {
	case "", TransportWebSocket, "ws":
		return NewWebSocket(opts), nil
	case TransportSSE:
		return NewSSE(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
	}
}

// =============================================================================
// RECONNECT LOOP
// =============================================================================

// sessionFunc runs one connection until it drops. It reports whether the
// connection was established at all.
type sessionFunc func(ctx context.Context) (established bool, err error)

// reconnect runs session repeatedly, pacing dials with limiter. Attempts are
// counted only while no connection could be established.
func reconnect(ctx context.Context, opts Options, limiter *rate.Limiter, l Listener, session sessionFunc) error {
	failures := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		l.HandleState(connection.StateConnecting)
		established, err := session(ctx)
		l.HandleState(connection.StateDisconnected)

		if ctx.Err() != nil {
			return nil
		}
		if established {
			failures = 0
		} else {
			failures++
		}

		log.Warn().Err(err).Str("url", opts.URL).Int("failures", failures).Msg("CONNECTION LOST")
		if opts.MaxReconnectAttempts > 0 && failures >= opts.MaxReconnectAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, failures, err)
		}
	}
}

func newDialLimiter(opts Options) *rate.Limiter {
	return rate.NewLimiter(rate.Every(opts.ReconnectDelay), 1)
}
