// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events defines the typed inbound events pushed by the companion
// server and the outbound chat payload.
package events

import "encoding/json"

// =============================================================================
// EVENT KINDS
// =============================================================================

// Kind is the wire value of an event's "type" field.
type Kind string

const (
	KindTyping        Kind = "typing"
	KindResponseChunk Kind = "response_chunk"
	KindResponse      Kind = "response"
	KindStateUpdate   Kind = "state_update"
	KindSideChannel   Kind = "side_channel"
	KindError         Kind = "error"
)

// TypingThinking is the typing status that means the peer is composing.
const TypingThinking = "thinking"

// =============================================================================
// EVENT SUM TYPE
// =============================================================================

// Event is one decoded inbound event. The set of implementations is closed:
// every event dispatches through Accept to exactly one Handler method, so a
// new kind does not compile until every Handler implements it.
type Event interface {
	Kind() Kind
	Accept(h Handler) error
}

// Handler receives events by kind.
type Handler interface {
	HandleTyping(ev Typing) error
	HandleResponseChunk(ev ResponseChunk) error
	HandleResponse(ev Response) error
	HandleStateUpdate(ev StateUpdate) error
	HandleSideChannel(ev SideChannel) error
	HandleError(ev ServerError) error
	HandleUnknown(ev Unknown) error
}

// Typing reports whether the peer is composing.
type Typing struct {
	Status string
}

// Composing reports whether the status means active composition.
func (e Typing) Composing() bool { return e.Status == TypingThinking }

func (e Typing) Kind() Kind             { return KindTyping }
func (e Typing) Accept(h Handler) error { return h.HandleTyping(e) }

// ResponseChunk is a partial fragment of a streamed AI response.
type ResponseChunk struct {
	ID            string
	Content       string
	IsComplete    bool
	Confidence    *float64
	EmotionalTone string

	// Seq is an optional per-stream sequence number used only to detect gaps.
	Seq *int64
}

func (e ResponseChunk) Kind() Kind             { return KindResponseChunk }
func (e ResponseChunk) Accept(h Handler) error { return h.HandleResponseChunk(e) }

// Response is a complete, non-streamed AI turn.
type Response struct {
	ID               string
	Content          string
	Confidence       *float64
	EmotionalTone    string
	RelatedDimension string
}

func (e Response) Kind() Kind             { return KindResponse }
func (e Response) Accept(h Handler) error { return h.HandleResponse(e) }

// StateUpdate carries the companion's emotional state. State holds the
// payload verbatim; Significance is lifted out of it when present.
type StateUpdate struct {
	State        json.RawMessage
	Significance *float64
}

func (e StateUpdate) Kind() Kind             { return KindStateUpdate }
func (e StateUpdate) Accept(h Handler) error { return h.HandleStateUpdate(e) }

// SideChannel is a system-originated note, e.g. an externally triggered message.
type SideChannel struct {
	ID      string
	Content string
}

func (e SideChannel) Kind() Kind             { return KindSideChannel }
func (e SideChannel) Accept(h Handler) error { return h.HandleSideChannel(e) }

// ServerError is an error pushed by the server.
type ServerError struct {
	Message string
}

func (e ServerError) Kind() Kind             { return KindError }
func (e ServerError) Accept(h Handler) error { return h.HandleError(e) }

// Unknown is any frame whose type is not recognized.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (e Unknown) Kind() Kind             { return Kind(e.Type) }
func (e Unknown) Accept(h Handler) error { return h.HandleUnknown(e) }
