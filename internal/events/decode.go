// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrMalformedFrame is returned for frames that are not a JSON object with a type.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrMissingField is returned when a required payload field is absent.
	ErrMissingField = errors.New("missing required field")
)

// wireEvent is the union of every payload field we read.
type wireEvent struct {
	Type             string          `json:"type"`
	ID               string          `json:"id"`
	MessageID        string          `json:"messageId"`
	Status           *string         `json:"status"`
	Content          *string         `json:"content"`
	Message          *string         `json:"message"`
	IsComplete       bool            `json:"is_complete"`
	Confidence       *float64        `json:"confidence"`
	EmotionalTone    string          `json:"emotionalTone"`
	RelatedDimension string          `json:"relatedDimension"`
	Seq              *int64          `json:"seq"`
	State            json.RawMessage `json:"state"`
}

func (w *wireEvent) id() string {
	if w.ID != "" {
		return w.ID
	}
	return w.MessageID
}

// Decode parses one raw frame into a typed event.
func Decode(frame []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(frame, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if w.Type == "" {
		return nil, fmt.Errorf("%w: no type", ErrMalformedFrame)
	}

	switch Kind(w.Type) {
	case KindTyping:
		if w.Status == nil {
			return nil, fmt.Errorf("%w: typing.status", ErrMissingField)
		}
		return Typing{Status: *w.Status}, nil

	case KindResponseChunk:
		// a terminal chunk may legitimately carry no content
		if w.Content == nil && !w.IsComplete {
			return nil, fmt.Errorf("%w: response_chunk.content", ErrMissingField)
		}
		return ResponseChunk{
			ID:            w.id(),
			Content:       deref(w.Content),
			IsComplete:    w.IsComplete,
			Confidence:    w.Confidence,
			EmotionalTone: w.EmotionalTone,
			Seq:           w.Seq,
		}, nil

	case KindResponse:
		if w.Content == nil {
			return nil, fmt.Errorf("%w: response.content", ErrMissingField)
		}
		return Response{
			ID:               w.id(),
			Content:          *w.Content,
			Confidence:       w.Confidence,
			EmotionalTone:    w.EmotionalTone,
			RelatedDimension: w.RelatedDimension,
		}, nil

	case KindStateUpdate:
		state := bytes.TrimSpace(w.State)
		if len(state) == 0 || bytes.Equal(state, []byte("null")) {
			return nil, fmt.Errorf("%w: state_update.state", ErrMissingField)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(state, &fields); err != nil {
			return nil, fmt.Errorf("%w: state_update.state: %v", ErrMalformedFrame, err)
		}
		return StateUpdate{
			State:        append(json.RawMessage(nil), state...),
			Significance: significance(fields["significance"]),
		}, nil

	case KindSideChannel:
		text := w.Content
		if text == nil {
			text = w.Message
		}
		if text == nil {
			return nil, fmt.Errorf("%w: side_channel.content", ErrMissingField)
		}
		return SideChannel{ID: w.id(), Content: *text}, nil

	case KindError:
		return ServerError{Message: deref(w.Message)}, nil

	default:
		return Unknown{Type: w.Type, Raw: append(json.RawMessage(nil), frame...)}, nil
	}
}

// significance reads the optional score. A value that is not a number is
// ignored so the state itself still reaches the store.
func significance(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Debug().Str("significance", string(raw)).Msg("STATE SIGNIFICANCE IGNORED")
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// =============================================================================
// OUTBOUND
// =============================================================================

// Outbound is the payload sent for a user chat turn.
type Outbound struct {
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	Timestamp int64          `json:"timestamp"`
	MessageID string         `json:"messageId"`
	Metadata  map[string]any `json:"metadata"`
}

// NewChat builds a chat payload. Timestamp is in unix milliseconds.
func NewChat(messageID, content string, at time.Time) Outbound {
	return Outbound{
		Type:      "chat",
		Content:   content,
		Timestamp: at.UnixMilli(),
		MessageID: messageID,
		Metadata:  map[string]any{},
	}
}
