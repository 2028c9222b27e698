// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatsync keeps a local conversation in step with the companion
// server: it routes inbound events, assembles streamed replies, tracks
// connection quality and sends user messages optimistically.
package chatsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/companion-tui/internal/channel"
	"github.com/jeranaias/companion-tui/internal/connection"
	"github.com/jeranaias/companion-tui/internal/conversation"
	"github.com/jeranaias/companion-tui/internal/emotion"
	"github.com/jeranaias/companion-tui/internal/events"
	"github.com/jeranaias/companion-tui/internal/metrics"
	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/notify"
)

// Snapshot is a consistent copy of everything the UI displays. Version grows
// with every change so observers can discard stale snapshots.
type Snapshot struct {
	Version           uint64
	Messages          []*model.Message
	CurrentResponseID string
	Composing         bool
	Connection        connection.Snapshot
}

// Options configures a Synchronizer. Every field is optional.
type Options struct {
	States   emotion.Store
	Notifier Notifier
	Metrics  *metrics.Metrics

	// OnChange is called after every change, outside the lock.
	OnChange func(Snapshot)
}

// =============================================================================
// SYNCHRONIZER
// =============================================================================

// Synchronizer owns one Session and is its only writer. Inbound frames,
// connection signals, user sends and clears are serialized by a single
// mutex, so no observer ever sees a half-applied event.
type Synchronizer struct {
	mu      sync.Mutex
	ctx     context.Context
	session *Session
	router  *Router
	version uint64

	adapter  channel.Adapter
	notifier Notifier
	metrics  *metrics.Metrics
	onChange func(Snapshot)
}

var _ channel.Listener = (*Synchronizer)(nil)

// New creates a synchronizer speaking through adapter.
func New(adapter channel.Adapter, opts Options) *Synchronizer {
	session := NewSession(opts.Metrics)
	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Synchronizer{
		ctx:      context.Background(),
		session:  session,
		router:   NewRouter(session, opts.States, notifier, opts.Metrics),
		adapter:  adapter,
		notifier: notifier,
		metrics:  opts.Metrics,
		onChange: opts.OnChange,
	}
}

// Run connects the adapter and feeds it into the synchronizer until ctx is
// done or the adapter gives up.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	return s.adapter.Connect(ctx, s)
}

// Close closes the adapter.
func (s *Synchronizer) Close() error {
	return s.adapter.Close()
}

// =============================================================================
// CHANNEL LISTENER
// =============================================================================

// HandleFrame decodes and applies one inbound frame.
func (s *Synchronizer) HandleFrame(frame []byte) {
	ev, err := events.Decode(frame)
	s.apply(func() bool {
		if err != nil {
			_ = s.router.Reject(err)
			return false
		}
		_ = s.router.Dispatch(s.ctx, ev)
		return true
	})
}

// HandleState applies a connection transition. Losing the connection ends
// any in-progress reply where it stands: the partial text is kept and
// whatever arrives after a reconnect starts a new message.
func (s *Synchronizer) HandleState(state connection.State) {
	s.apply(func() bool {
		prev := s.session.Tracker.State()
		s.session.Tracker.SetState(state)
		if state == connection.StateDisconnected && prev != connection.StateDisconnected {
			if id := s.session.Store.FinalizeStreaming(); id != "" {
				s.session.Assembler.Reset()
				log.Warn().Str("id", id).Msg("STREAM INTERRUPTED")
			}
			s.session.Composing = false
		}
		log.Info().Str("state", state.String()).Msg("CONNECTION STATE")
		return true
	})
}

// HandleLatency records a latency sample.
func (s *Synchronizer) HandleLatency(d time.Duration) {
	s.metrics.ObserveLatency(d)
	s.apply(func() bool {
		s.session.Tracker.Sample(d)
		return true
	})
}

// =============================================================================
// LOCAL ACTIONS
// =============================================================================

// Send appends text as a user message and transmits it. The message is
// visible with status sending before transmission and ends as sent or
// error. Nothing is retried.
func (s *Synchronizer) Send(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	var (
		msg *model.Message
		err error
	)
	s.apply(func() bool {
		if !s.session.Tracker.IsConnected() {
			err = ErrNotConnected
			return false
		}
		msg = model.NewUserMessage(text)
		if err = s.session.Store.Append(msg); err != nil {
			return false
		}
		s.session.LastSend = msg.Timestamp
		return true
	})
	if errors.Is(err, ErrNotConnected) {
		s.metrics.SendResult(metrics.SendNotConnected)
		return "", err
	}
	if err != nil {
		return "", err
	}

	sendErr := s.adapter.Send(ctx, events.NewChat(msg.ID, msg.Text, msg.Timestamp))

	next := model.StatusSent
	if sendErr != nil {
		next = model.StatusError
	}
	s.apply(func() bool {
		err := s.session.Store.MutateByID(msg.ID, func(m *model.Message) { m.Status = next })
		if errors.Is(err, conversation.ErrNotFound) {
			// cleared while in flight
			return false
		}
		if err != nil {
			log.Error().Err(err).Str("id", msg.ID).Msg("SEND STATUS REJECTED")
			return false
		}
		return true
	})

	if sendErr != nil {
		s.metrics.SendResult(metrics.SendFailed)
		log.Warn().Err(sendErr).Str("id", msg.ID).Msg("SEND FAILED")
		s.notifier.Notify(notify.Error, "Message not sent: "+sendErr.Error())
		return msg.ID, &TransmitError{MessageID: msg.ID, Err: sendErr}
	}
	s.metrics.SendResult(metrics.SendOK)
	return msg.ID, nil
}

// Resend submits the text of a failed user message again as a new message.
// The failed message stays as it is.
func (s *Synchronizer) Resend(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	msg, ok := s.session.Store.Get(id)
	s.mu.Unlock()

	if !ok {
		return "", conversation.ErrNotFound
	}
	if msg.Sender != model.SenderUser || msg.Status != model.StatusError {
		return "", ErrNotResendable
	}
	return s.Send(ctx, msg.Text)
}

// LastFailed returns the id of the most recent failed user message.
func (s *Synchronizer) LastFailed() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.session.Store.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if m := msgs[i]; m.Sender == model.SenderUser && m.Status == model.StatusError {
			return m.ID, true
		}
	}
	return "", false
}

// Clear empties the conversation. A chunk arriving afterwards starts a new
// message.
func (s *Synchronizer) Clear() {
	s.apply(func() bool {
		s.session.reset()
		return true
	})
}

// =============================================================================
// READS
// =============================================================================

// Snapshot returns the current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsConnected reports whether sends are currently accepted.
func (s *Synchronizer) IsConnected() bool {
	return s.session.Tracker.IsConnected()
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	return Snapshot{
		Version:           s.version,
		Messages:          s.session.Store.Messages(),
		CurrentResponseID: s.session.Store.CurrentResponseID(),
		Composing:         s.session.Composing,
		Connection:        s.session.Tracker.Snapshot(),
	}
}

// apply runs fn under the lock and, if fn reports a change, notifies the
// observer.
func (s *Synchronizer) apply(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.version++
	var snap Snapshot
	if s.onChange != nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snap)
	}
}
