// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation messages.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderAI:
		return "Companion"
	case SenderSystem:
		return "System"
	default:
		return string(s)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status is the delivery status of a message.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusError     Status = "error"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists the statuses reachable from each status.
// StatusError is terminal: a failed send is retried as a new message.
var transitions = map[Status][]Status{
	StatusSending:   {StatusSent, StatusError},
	StatusSent:      {StatusDelivered, StatusRead},
	StatusDelivered: {StatusRead},
}

// CanTransition reports whether a message may move from s to next.
// Staying on the same status is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates a status change and returns an error wrapping
// ErrInvalidTransition when it is not allowed.
func (s Status) Transition(next Status) error {
	if !s.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

// Icon returns a short glyph for inline status display.
func (s Status) Icon() string {
	switch s {
	case StatusSending:
		return "…"
	case StatusSent:
		return "✓"
	case StatusDelivered:
		return "✓✓"
	case StatusRead:
		return "●"
	case StatusError:
		return "!"
	default:
		return ""
	}
}

// =============================================================================
// METADATA
// =============================================================================

// Metadata carries optional response details attached to AI messages.
type Metadata struct {
	ProcessingTime   time.Duration `json:"processing_time_ns,omitempty"`
	Confidence       *float64      `json:"confidence,omitempty"`
	EmotionalTone    string        `json:"emotional_tone,omitempty"`
	RelatedDimension string        `json:"related_dimension,omitempty"`
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	out := *m
	if m.Confidence != nil {
		c := *m.Confidence
		out.Confidence = &c
	}
	return &out
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one conversational turn.
//
// ID, Sender and Timestamp are fixed at creation. Text, Status and Metadata
// are the only fields that change afterwards, and Text/Metadata freeze once
// the message is finalized.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Metadata  *Metadata `json:"metadata,omitempty"`

	// Finalized is set when the message stops accepting text.
	Finalized bool `json:"finalized"`
}

// NewID returns a fresh message identifier.
func NewID() string {
	return "msg_" + uuid.NewString()
}

// NewUserMessage creates an optimistic user message awaiting transmission.
func NewUserMessage(text string) *Message {
	return &Message{
		ID:        NewID(),
		Sender:    SenderUser,
		Text:      text,
		Timestamp: time.Now(),
		Status:    StatusSending,
		Finalized: true,
	}
}

// NewAIMessage creates a finalized AI message. An empty id gets a generated one.
func NewAIMessage(id, text string, meta *Metadata) *Message {
	if id == "" {
		id = NewID()
	}
	return &Message{
		ID:        id,
		Sender:    SenderAI,
		Text:      text,
		Timestamp: time.Now(),
		Status:    StatusDelivered,
		Metadata:  meta,
		Finalized: true,
	}
}

// NewStreamingMessage creates an AI message that will receive streamed chunks.
func NewStreamingMessage(id, text string, meta *Metadata) *Message {
	if id == "" {
		id = NewID()
	}
	return &Message{
		ID:        id,
		Sender:    SenderAI,
		Text:      text,
		Timestamp: time.Now(),
		Status:    StatusSent,
		Metadata:  meta,
	}
}

// NewSystemMessage creates a finalized system message.
func NewSystemMessage(id, text string) *Message {
	if id == "" {
		id = NewID()
	}
	return &Message{
		ID:        id,
		Sender:    SenderSystem,
		Text:      text,
		Timestamp: time.Now(),
		Status:    StatusDelivered,
		Finalized: true,
	}
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	out.Metadata = m.Metadata.Clone()
	return &out
}

// IsStreaming reports whether the message is still receiving chunks.
func (m *Message) IsStreaming() bool {
	return m.Sender == SenderAI && !m.Finalized
}

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.Text)
	if len(runes) <= maxLen {
		return m.Text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
