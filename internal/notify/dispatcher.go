// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify delivers transient user-facing notifications without ever
// blocking the caller.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/companion-tui/internal/metrics"
)

// Kind is the notification severity.
type Kind string

const (
	Info  Kind = "info"
	Error Kind = "error"
)

// DefaultQueueSize is used when Options.QueueSize is not positive.
const DefaultQueueSize = 64

// Sink shows a notification to the user.
type Sink interface {
	Notify(kind Kind, message string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(kind Kind, message string) error

func (f SinkFunc) Notify(kind Kind, message string) error { return f(kind, message) }

// Options configures a Dispatcher.
type Options struct {
	QueueSize int
	Metrics   *metrics.Metrics
}

type item struct {
	kind    Kind
	message string
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher queues notifications and hands them to a Sink from a single
// worker goroutine, in order. Notify never blocks: when the queue is full the
// notification is dropped and counted.
type Dispatcher struct {
	sink    Sink
	metrics *metrics.Metrics

	mu      sync.RWMutex // guards queue against send-after-close
	queue   chan item
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher in front of sink.
func NewDispatcher(sink Sink, opts Options) *Dispatcher {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	d := &Dispatcher{
		sink:    sink,
		metrics: opts.Metrics,
		queue:   make(chan item, size),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Notify enqueues a notification. It reports false if the notification was
// dropped, either because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Notify(kind Kind, message string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}
	select {
	case d.queue <- item{kind: kind, message: message}:
		d.metrics.Notified(string(kind))
		return true
	default:
		d.dropped.Add(1)
		d.metrics.NotificationDropped()
		log.Warn().Str("kind", string(kind)).Str("message", message).Msg("NOTIFY DROPPED")
		return false
	}
}

// Dropped returns how many notifications were discarded on overflow.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting notifications and waits until the queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for it := range d.queue {
		d.deliver(it)
	}
}

// deliver swallows sink errors and panics so one bad sink call cannot stop
// the worker.
func (d *Dispatcher) deliver(it item) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("kind", string(it.kind)).Msg("NOTIFY SINK PANIC")
		}
	}()
	if err := d.sink.Notify(it.kind, it.message); err != nil {
		log.Warn().Err(err).Str("kind", string(it.kind)).Msg("NOTIFY SINK FAILED")
	}
}
