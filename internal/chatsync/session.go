// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatsync

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/companion-tui/internal/connection"
	"github.com/jeranaias/companion-tui/internal/conversation"
	"github.com/jeranaias/companion-tui/internal/metrics"
)

// Session is the mutable state of one conversation. The Router and the
// Synchronizer operate on it explicitly; nothing is package-global, so tests
// can build as many isolated sessions as they like.
//
// A Session is not safe for concurrent use by itself. The Synchronizer
// serializes access.
type Session struct {
	Store     *conversation.Store
	Assembler *conversation.Assembler
	Tracker   *connection.Tracker

	// Composing is true while the companion is typing.
	Composing bool
	// LastSend is when the latest user message was handed to the channel.
	LastSend time.Time
}

// NewSession creates an empty, disconnected session.
func NewSession(m *metrics.Metrics) *Session {
	store := conversation.NewStore()
	return &Session{
		Store: store,
		Assembler: conversation.NewAssembler(store, func(g conversation.Gap) {
			m.SequenceGap()
			log.Warn().
				Str("id", g.MessageID).
				Int64("expected", g.Expected).
				Int64("got", g.Got).
				Msg("STREAM GAP")
		}),
		Tracker: connection.NewTracker(func(s connection.Snapshot) {
			m.SetQuality(string(s.Quality), qualities...)
		}),
	}
}

var qualities = []string{
	string(connection.QualityExcellent),
	string(connection.QualityGood),
	string(connection.QualityPoor),
	string(connection.QualityDisconnected),
}

// sinceLastSend is the latency attributed to a response: the time since the
// request that triggered it, or zero if nothing was sent yet.
func (s *Session) sinceLastSend(now time.Time) time.Duration {
	if s.LastSend.IsZero() {
		return 0
	}
	return now.Sub(s.LastSend)
}

// reset drops the conversation and any in-progress response together.
func (s *Session) reset() {
	s.Store.Clear()
	s.Assembler.Reset()
	s.Composing = false
}
