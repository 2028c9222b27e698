// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package channel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/companion-tui/internal/connection"
	"github.com/jeranaias/companion-tui/internal/events"
)

// maxEventSize bounds a single SSE event.
const maxEventSize = 64 * 1024

// errEventTooLarge is returned when an event exceeds maxEventSize.
var errEventTooLarge = errors.New("sse event too large")

// =============================================================================
// SSE READER
// =============================================================================

// sseReader parses Server-Sent Events from a stream.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// next returns the data of the next event, joined across data lines.
// Returns io.EOF when the stream ends.
func (s *sseReader) next() ([]byte, error) {
	var data [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		// blank line ends the event
		if len(line) == 0 {
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			continue
		}

		// id:, event:, retry: and comments are not used
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		field := bytes.TrimPrefix(line[5:], []byte(" "))
		size += len(field)
		if size > maxEventSize {
			return nil, errEventTooLarge
		}
		data = append(data, append([]byte(nil), field...))
	}
}

// =============================================================================
// SSE ADAPTER
// =============================================================================

// SSEAdapter receives events over a text/event-stream response and sends by
// POSTing JSON. Latency is the round trip of the stream handshake and of each
// send.
type SSEAdapter struct {
	opts    Options
	limiter *rate.Limiter

	mu     sync.Mutex
	cancel context.CancelFunc
	l      Listener

	connected atomic.Bool
	closed    atomic.Bool
	latencyMs atomic.Int64
}

// NewSSE creates an unconnected SSE adapter.
func NewSSE(opts Options) *SSEAdapter {
	opts = opts.withDefaults()
	return &SSEAdapter{opts: opts, limiter: newDialLimiter(opts)}
}

// Connect implements Adapter.
func (a *SSEAdapter) Connect(ctx context.Context, l Listener) error {
	if a.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.l = l
	a.mu.Unlock()
	defer cancel()

	return reconnect(ctx, a.opts, a.limiter, l, func(ctx context.Context) (bool, error) {
		return a.session(ctx, l)
	})
}

func (a *SSEAdapter) session(ctx context.Context, l Listener) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.opts.URL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := a.opts.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}

	a.connected.Store(true)
	defer func() {
		a.connected.Store(false)
		a.latencyMs.Store(0)
	}()
	log.Info().Str("url", a.opts.URL).Msg("SSE CONNECTED")
	l.HandleState(connection.StateConnected)
	a.observe(l, time.Since(start))

	reader := newSSEReader(resp.Body)
	for {
		data, err := reader.next()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			if err == io.EOF {
				return true, errors.New("stream ended")
			}
			return true, fmt.Errorf("read stream: %w", err)
		}
		l.HandleFrame(data)
	}
}

func (a *SSEAdapter) observe(l Listener, d time.Duration) {
	a.latencyMs.Store(d.Milliseconds())
	if l != nil {
		l.HandleLatency(d)
	}
}

// Send implements Adapter.
func (a *SSEAdapter) Send(ctx context.Context, msg events.Outbound) error {
	if a.closed.Load() {
		return ErrClosed
	}
	if !a.connected.Load() {
		return ErrNotConnected
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode outbound: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.WriteTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.SendURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxEventSize))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("post: unexpected status %d", resp.StatusCode)
	}

	a.mu.Lock()
	l := a.l
	a.mu.Unlock()
	a.observe(l, time.Since(start))
	return nil
}

// IsConnected implements Adapter.
func (a *SSEAdapter) IsConnected() bool {
	return a.connected.Load()
}

// LatencyMs implements Adapter.
func (a *SSEAdapter) LatencyMs() int64 {
	return a.latencyMs.Load()
}

// Close stops Connect and refuses further sends.
func (a *SSEAdapter) Close() error {
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
