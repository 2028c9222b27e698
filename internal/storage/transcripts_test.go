// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/companion-tui/internal/model"
)

func newStore(t *testing.T) *TranscriptStore {
	t.Helper()
	s, err := NewTranscriptStore(filepath.Join(t.TempDir(), "transcripts"))
	require.NoError(t, err)
	return s
}

func sampleMessages() []*model.Message {
	user := model.NewUserMessage("how was your day?\nhonestly")
	user.Status = model.StatusSent
	conf := 0.9
	ai := model.NewAIMessage("r1", "Quiet, thanks 🌙", &model.Metadata{Confidence: &conf, EmotionalTone: "calm"})
	return []*model.Message{user, ai}
}

func TestTranscriptStore_SaveAndLoad(t *testing.T) {
	s := newStore(t)
	tr := NewTranscript("ws://localhost:8787/ws", sampleMessages())
	tr.State = json.RawMessage(`{"joy":0.4}`)

	id, err := s.Save(tr)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "how was your day?...", tr.Title)
	assert.False(t, tr.CreatedAt.IsZero())

	info, err := os.Stat(filepath.Join(s.BaseDir, id+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := s.Load(id)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Quiet, thanks 🌙", got.Messages[1].Text)
	assert.Equal(t, 0.9, *got.Messages[1].Metadata.Confidence)
	assert.Equal(t, model.SenderUser, got.Messages[0].Sender)
	assert.JSONEq(t, `{"joy":0.4}`, string(got.State))
}

func TestTranscriptStore_SaveKeepsCreatedAt(t *testing.T) {
	s := newStore(t)
	tr := NewTranscript("", sampleMessages())
	_, err := s.Save(tr)
	require.NoError(t, err)
	created := tr.CreatedAt

	time.Sleep(5 * time.Millisecond)
	_, err = s.Save(tr)
	require.NoError(t, err)
	assert.True(t, created.Equal(tr.CreatedAt))
	assert.True(t, tr.UpdatedAt.After(created))
}

func TestNewTranscript_CopiesMessages(t *testing.T) {
	msgs := sampleMessages()
	tr := NewTranscript("", msgs)
	msgs[0].Text = "changed"
	assert.Equal(t, "how was your day?\nhonestly", tr.Messages[0].Text)
}

func TestTranscriptStore_LoadMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Load("nope")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)

	assert.ErrorIs(t, s.Delete("nope"), ErrTranscriptNotFound)
}

func TestTranscriptStore_RejectsPathIDs(t *testing.T) {
	s := newStore(t)
	for _, id := range []string{"", "../config", "a/b", ".hidden"} {
		_, err := s.Load(id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
	}
}

func TestTranscriptStore_ListNewestFirstAndResolve(t *testing.T) {
	s := newStore(t)
	first := NewTranscript("", []*model.Message{model.NewUserMessage("first")})
	_, err := s.Save(first)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second := NewTranscript("", []*model.Message{model.NewUserMessage("second")})
	_, err = s.Save(second)
	require.NoError(t, err)

	// corrupt files are skipped
	require.NoError(t, os.WriteFile(filepath.Join(s.BaseDir, "broken.json"), []byte("{"), 0600))

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, second.ID, metas[0].ID)
	assert.Equal(t, "second", metas[0].Preview)
	assert.Equal(t, 1, metas[0].MessageCount)

	got, err := s.Resolve("1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = s.Resolve(second.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Title)

	_, err = s.Resolve("7")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
}

func TestTranscriptStore_EnforceLimit(t *testing.T) {
	s := newStore(t)
	s.MaxTranscripts = 2

	var ids []string
	for _, text := range []string{"a", "b", "c"} {
		id, err := s.Save(NewTranscript("", []*model.Message{model.NewUserMessage(text)}))
		require.NoError(t, err)
		ids = append(ids, id)
		time.Sleep(5 * time.Millisecond)
	}

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	_, err = s.Load(ids[0])
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
}

func TestTranscript_Markdown(t *testing.T) {
	msgs := sampleMessages()
	failed := model.NewUserMessage("lost")
	failed.Status = model.StatusError
	tr := NewTranscript("", append(msgs, failed))
	tr.Title = "Evening"

	md := tr.Markdown()
	assert.Contains(t, md, "# Evening")
	assert.Contains(t, md, "**You**")
	assert.Contains(t, md, "**Companion**")
	assert.Contains(t, md, "_calm_")
	assert.Contains(t, md, "_not sent_")
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "No saved transcripts.", FormatList(nil))

	out := FormatList([]TranscriptMeta{{ID: "x1", Title: "Hello", MessageCount: 3, UpdatedAt: time.Now()}})
	assert.Contains(t, out, "x1")
	assert.Contains(t, out, "Hello")
}
