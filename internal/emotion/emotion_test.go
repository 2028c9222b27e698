// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestState_Dimensions(t *testing.T) {
	s := State{Payload: json.RawMessage(`{"joy":0.4,"trust":0.9,"label":"calm","significance":0.95,"fear":0.4}`)}

	assert.Equal(t, []Dimension{
		{Name: "trust", Value: 0.9},
		{Name: "fear", Value: 0.4},
		{Name: "joy", Value: 0.4},
	}, s.Dimensions())

	assert.Nil(t, State{Payload: json.RawMessage(`[1]`)}.Dimensions())
}

func TestMemoryStore_LatestAndLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(2)

	_, ok, err := m.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, p := range []string{`{"a":1}`, `{"a":2}`, `{"a":3}`} {
		require.NoError(t, m.UpdateState(ctx, State{Payload: json.RawMessage(p)}))
	}

	latest, ok, err := m.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":3}`, string(latest.Payload))
	assert.False(t, latest.ReceivedAt.IsZero())

	hist := m.History()
	require.Len(t, hist, 2)
	assert.JSONEq(t, `{"a":2}`, string(hist[0].Payload))
}

func TestMemoryStore_CopiesPayload(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(1)
	payload := []byte(`{"a":1}`)
	require.NoError(t, m.UpdateState(ctx, State{Payload: payload}))

	payload[5] = '9'
	latest, _, _ := m.Latest(ctx)
	assert.JSONEq(t, `{"a":1}`, string(latest.Payload))
}

func TestSQLiteStore_Journal(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	defer s.Close()

	at := time.UnixMilli(1700000000000)
	require.NoError(t, s.UpdateState(ctx, State{Payload: json.RawMessage(`{"joy":0.1}`), ReceivedAt: at}))
	require.NoError(t, s.UpdateState(ctx, State{Payload: json.RawMessage(`{"joy":0.8,"significance":0.9}`), Significance: ptr(0.9)}))

	latest, ok, err := s.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, latest.Significance)
	assert.Equal(t, 0.9, *latest.Significance)
	assert.JSONEq(t, `{"joy":0.8,"significance":0.9}`, string(latest.Payload))

	hist, err := s.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Nil(t, hist[1].Significance)
	assert.True(t, at.Equal(hist[1].ReceivedAt))

	_, err = s.History(ctx, 0)
	assert.Error(t, err)
}

func TestSQLiteStore_EmptyLatest(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingStore struct{}

func (failingStore) UpdateState(context.Context, State) error { return errors.New("disk full") }

func TestTee_StopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	first := NewMemoryStore(1)
	last := NewMemoryStore(1)

	err := Tee{first, failingStore{}, last}.UpdateState(ctx, State{Payload: json.RawMessage(`{}`)})
	assert.EqualError(t, err, "disk full")

	_, ok, _ := first.Latest(ctx)
	assert.True(t, ok)
	_, ok, _ = last.Latest(ctx)
	assert.False(t, ok)
}
