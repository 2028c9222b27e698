// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/companion-tui/internal/model"
)

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestStore_AppendKeepsOrder(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(&model.Message{ID: "a", Sender: model.SenderUser, Status: model.StatusSending}))
	require.NoError(t, s.Append(&model.Message{ID: "b", Sender: model.SenderAI, Status: model.StatusDelivered}))
	require.NoError(t, s.Append(&model.Message{ID: "c", Sender: model.SenderSystem, Status: model.StatusDelivered}))

	var ids []string
	for _, m := range s.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, 3, s.Len())
}

func TestStore_AppendDuplicate(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(&model.Message{ID: "a"}))

	err := s.Append(&model.Message{ID: "a"})
	assert.True(t, errors.Is(err, ErrDuplicateID))
	assert.Equal(t, 1, s.Len())
}

func TestStore_AppendMissingID(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.Append(&model.Message{}), ErrMissingID)
	assert.ErrorIs(t, s.Append(nil), ErrMissingID)
}

func TestStore_AppendStoresCopy(t *testing.T) {
	s := NewStore()
	msg := model.NewUserMessage("hi")
	require.NoError(t, s.Append(msg))

	msg.Text = "mutated outside"
	got, ok := s.Get(msg.ID)
	require.True(t, ok)
	assert.Equal(t, "hi", got.Text)
}

// =============================================================================
// MUTATE TESTS
// =============================================================================

func TestStore_MutateStatus(t *testing.T) {
	s := NewStore()
	msg := model.NewUserMessage("hi")
	require.NoError(t, s.Append(msg))

	require.NoError(t, s.MutateByID(msg.ID, func(m *model.Message) { m.Status = model.StatusSent }))

	got, _ := s.Get(msg.ID)
	assert.Equal(t, model.StatusSent, got.Status)
}

func TestStore_MutateNotFound(t *testing.T) {
	s := NewStore()
	err := s.MutateByID("ghost", func(m *model.Message) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_MutateRejectsImmutableFields(t *testing.T) {
	tests := []struct {
		name  string
		patch func(m *model.Message)
	}{
		{"sender", func(m *model.Message) { m.Sender = model.SenderAI }},
		{"timestamp", func(m *model.Message) { m.Timestamp = m.Timestamp.Add(time.Second) }},
		{"id", func(m *model.Message) { m.ID = "other" }},
		{"finalized", func(m *model.Message) { m.Finalized = false }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			msg := model.NewUserMessage("hi")
			require.NoError(t, s.Append(msg))

			err := s.MutateByID(msg.ID, tc.patch)
			assert.ErrorIs(t, err, ErrImmutableField)

			got, _ := s.Get(msg.ID)
			assert.Equal(t, msg.Sender, got.Sender)
			assert.True(t, msg.Timestamp.Equal(got.Timestamp))
		})
	}
}

func TestStore_MutateRejectsInvalidTransition(t *testing.T) {
	s := NewStore()
	msg := model.NewUserMessage("hi")
	require.NoError(t, s.Append(msg))
	require.NoError(t, s.MutateByID(msg.ID, func(m *model.Message) { m.Status = model.StatusError }))

	err := s.MutateByID(msg.ID, func(m *model.Message) { m.Status = model.StatusSent })
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	got, _ := s.Get(msg.ID)
	assert.Equal(t, model.StatusError, got.Status)
}

func TestStore_FinalizedTextIsFrozen(t *testing.T) {
	s := NewStore()
	msg := model.NewAIMessage("r1", "done", &model.Metadata{EmotionalTone: "calm"})
	require.NoError(t, s.Append(msg))

	err := s.MutateByID("r1", func(m *model.Message) { m.Text += " more" })
	assert.ErrorIs(t, err, ErrFinalized)

	err = s.MutateByID("r1", func(m *model.Message) { m.Metadata.EmotionalTone = "angry" })
	assert.ErrorIs(t, err, ErrFinalized)

	// status still follows the transition table
	require.NoError(t, s.MutateByID("r1", func(m *model.Message) { m.Status = model.StatusRead }))
}

func TestStore_MetadataCannotBeRetracted(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.BeginStreaming(model.NewStreamingMessage("s1", "a", &model.Metadata{})))

	err := s.MutateByID("s1", func(m *model.Message) { m.Metadata = nil })
	assert.ErrorIs(t, err, ErrImmutableField)
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestStore_BeginStreamingWhileInProgress(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.BeginStreaming(model.NewStreamingMessage("s1", "", nil)))

	err := s.BeginStreaming(model.NewStreamingMessage("s2", "", nil))
	assert.ErrorIs(t, err, ErrStreamInProgress)
	assert.Equal(t, "s1", s.CurrentResponseID())
	assert.Equal(t, 1, s.Len())
}

func TestStore_FinalizeStreaming(t *testing.T) {
	s := NewStore()
	assert.Equal(t, "", s.FinalizeStreaming())

	require.NoError(t, s.BeginStreaming(model.NewStreamingMessage("s1", "part", nil)))
	got, _ := s.Get("s1")
	assert.True(t, got.IsStreaming())

	assert.Equal(t, "s1", s.FinalizeStreaming())
	assert.Equal(t, "", s.CurrentResponseID())

	got, _ = s.Get("s1")
	assert.True(t, got.Finalized)
	assert.ErrorIs(t, s.MutateByID("s1", func(m *model.Message) { m.Text += "x" }), ErrFinalized)
}

func TestStore_ClearResetsEverything(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(model.NewUserMessage("hi")))
	require.NoError(t, s.BeginStreaming(model.NewStreamingMessage("s1", "par", nil)))

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", s.CurrentResponseID())
	_, ok := s.Get("s1")
	assert.False(t, ok)

	// ids are free again after clear
	require.NoError(t, s.Append(&model.Message{ID: "s1", Sender: model.SenderAI}))
}

func TestStore_ConcurrentAppendAndRead(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Append(model.NewUserMessage("x"))
		}()
		go func() {
			defer wg.Done()
			_ = s.Messages()
			_ = s.CurrentResponseID()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, s.Len())
}
