// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"time"

	"github.com/jeranaias/companion-tui/internal/events"
	"github.com/jeranaias/companion-tui/internal/model"
)

// =============================================================================
// STREAM ASSEMBLER
// =============================================================================

// Gap describes a chunk whose sequence number did not follow the previous one.
type Gap struct {
	MessageID string
	Expected  int64
	Got       int64
}

// Assembler folds response chunks into a single growing AI message.
//
// Chunks are applied strictly in arrival order; sequence numbers, when the
// server sends them, are only checked and reported. The assembler keeps no
// lock of its own and relies on its caller to serialize Fold calls.
type Assembler struct {
	store *Store
	onGap func(Gap)

	seqStream string
	lastSeq   *int64
}

// NewAssembler creates an assembler backed by store. onGap may be nil.
func NewAssembler(store *Store, onGap func(Gap)) *Assembler {
	return &Assembler{store: store, onGap: onGap}
}

// Fold applies one chunk and returns the id of the message it landed in.
// latency is the time since the request that triggered this response.
func (a *Assembler) Fold(chunk events.ResponseChunk, latency time.Duration) (string, error) {
	id := a.store.CurrentResponseID()

	if id != "" {
		err := a.store.MutateByID(id, func(m *model.Message) {
			m.Text += chunk.Content
			if m.Metadata == nil {
				m.Metadata = &model.Metadata{}
			}
			m.Metadata.ProcessingTime = latency
		})
		if err != nil {
			return id, err
		}
	} else {
		meta := &model.Metadata{
			ProcessingTime: latency,
			Confidence:     chunk.Confidence,
			EmotionalTone:  chunk.EmotionalTone,
		}
		msg := model.NewStreamingMessage(chunk.ID, chunk.Content, meta)
		if err := a.store.BeginStreaming(msg); err != nil {
			return "", err
		}
		id = msg.ID
	}

	a.checkSeq(id, chunk.Seq)

	if chunk.IsComplete {
		a.store.FinalizeStreaming()
		a.Reset()
	}
	return id, nil
}

// Reset forgets sequence tracking for the current stream.
func (a *Assembler) Reset() {
	a.seqStream = ""
	a.lastSeq = nil
}

func (a *Assembler) checkSeq(id string, seq *int64) {
	if seq == nil {
		return
	}
	if a.seqStream != id {
		a.seqStream = id
		a.lastSeq = nil
	}
	if a.lastSeq != nil {
		want := *a.lastSeq + 1
		if *seq != want && a.onGap != nil {
			a.onGap(Gap{MessageID: id, Expected: want, Got: *seq})
		}
		if *seq < *a.lastSeq {
			return
		}
	}
	got := *seq
	a.lastSeq = &got
}
