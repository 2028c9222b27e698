// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/companion-tui/internal/events"
	"github.com/jeranaias/companion-tui/internal/model"
)

func seq(n int64) *int64 { return &n }

func TestAssembler_TwoChunksMakeOneMessage(t *testing.T) {
	s := NewStore()
	a := NewAssembler(s, nil)

	id1, err := a.Fold(events.ResponseChunk{ID: "r1", Content: "Hel"}, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "r1", s.CurrentResponseID())

	id2, err := a.Fold(events.ResponseChunk{Content: "lo", IsComplete: true}, 25*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, model.SenderAI, msgs[0].Sender)
	assert.True(t, msgs[0].Finalized)
	assert.Equal(t, 25*time.Millisecond, msgs[0].Metadata.ProcessingTime)
	assert.Equal(t, "", s.CurrentResponseID())
}

func TestAssembler_TextIsConcatenationInArrivalOrder(t *testing.T) {
	s := NewStore()
	a := NewAssembler(s, nil)

	parts := []string{"I ", "hear ", "you", "."}
	for i, p := range parts {
		_, err := a.Fold(events.ResponseChunk{ID: "r1", Content: p, IsComplete: i == len(parts)-1}, 0)
		require.NoError(t, err)
	}

	got, ok := s.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "I hear you.", got.Text)
}

func TestAssembler_FirstChunkWithoutIDGetsGenerated(t *testing.T) {
	s := NewStore()
	a := NewAssembler(s, nil)

	id, err := a.Fold(events.ResponseChunk{Content: "x"}, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, s.CurrentResponseID())
}

func TestAssembler_KeepsFirstChunkMetadata(t *testing.T) {
	s := NewStore()
	a := NewAssembler(s, nil)
	conf := 0.7

	_, err := a.Fold(events.ResponseChunk{ID: "r1", Content: "a", Confidence: &conf, EmotionalTone: "warm"}, 0)
	require.NoError(t, err)
	_, err = a.Fold(events.ResponseChunk{Content: "b"}, time.Second)
	require.NoError(t, err)

	got, _ := s.Get("r1")
	require.NotNil(t, got.Metadata.Confidence)
	assert.Equal(t, 0.7, *got.Metadata.Confidence)
	assert.Equal(t, "warm", got.Metadata.EmotionalTone)
	assert.Equal(t, time.Second, got.Metadata.ProcessingTime)
	assert.True(t, got.IsStreaming())
}

func TestAssembler_NewStreamAfterCompletion(t *testing.T) {
	s := NewStore()
	a := NewAssembler(s, nil)

	_, err := a.Fold(events.ResponseChunk{ID: "r1", Content: "one", IsComplete: true}, 0)
	require.NoError(t, err)
	_, err = a.Fold(events.ResponseChunk{ID: "r2", Content: "two"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "r2", s.CurrentResponseID())
}

func TestAssembler_ChunkAfterClearStartsFresh(t *testing.T) {
	s := NewStore()
	a := NewAssembler(s, nil)

	_, err := a.Fold(events.ResponseChunk{ID: "r1", Content: "stale"}, 0)
	require.NoError(t, err)

	s.Clear()
	a.Reset()

	_, err = a.Fold(events.ResponseChunk{ID: "r2", Content: "fresh"}, 0)
	require.NoError(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "fresh", msgs[0].Text)
}

func TestAssembler_DuplicateStreamIDRejected(t *testing.T) {
	s := NewStore()
	a := NewAssembler(s, nil)

	_, err := a.Fold(events.ResponseChunk{ID: "r1", Content: "a", IsComplete: true}, 0)
	require.NoError(t, err)

	// replaying the first chunk of a finished stream must not create a twin
	_, err = a.Fold(events.ResponseChunk{ID: "r1", Content: "a"}, 0)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "", s.CurrentResponseID())
}

func TestAssembler_ReportsSequenceGaps(t *testing.T) {
	s := NewStore()
	var gaps []Gap
	a := NewAssembler(s, func(g Gap) { gaps = append(gaps, g) })

	for _, c := range []events.ResponseChunk{
		{ID: "r1", Content: "a", Seq: seq(0)},
		{Content: "b", Seq: seq(1)},
		{Content: "d", Seq: seq(3)},
		{Content: "c", Seq: seq(2)},
	} {
		_, err := a.Fold(c, 0)
		require.NoError(t, err)
	}

	// text is never reordered
	got, _ := s.Get("r1")
	assert.Equal(t, "abdc", got.Text)

	require.Len(t, gaps, 2)
	assert.Equal(t, Gap{MessageID: "r1", Expected: 2, Got: 3}, gaps[0])
	assert.Equal(t, Gap{MessageID: "r1", Expected: 4, Got: 2}, gaps[1])
}

func TestAssembler_SequenceRestartsPerStream(t *testing.T) {
	s := NewStore()
	var gaps []Gap
	a := NewAssembler(s, func(g Gap) { gaps = append(gaps, g) })

	_, err := a.Fold(events.ResponseChunk{ID: "r1", Content: "a", Seq: seq(5), IsComplete: true}, 0)
	require.NoError(t, err)
	_, err = a.Fold(events.ResponseChunk{ID: "r2", Content: "b", Seq: seq(0)}, 0)
	require.NoError(t, err)

	assert.Empty(t, gaps)
}
