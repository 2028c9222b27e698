// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Typing(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"typing","status":"thinking"}`))
	require.NoError(t, err)

	typing, ok := ev.(Typing)
	require.True(t, ok)
	assert.True(t, typing.Composing())

	ev, err = Decode([]byte(`{"type":"typing","status":"idle"}`))
	require.NoError(t, err)
	assert.False(t, ev.(Typing).Composing())
}

func TestDecode_ResponseChunk(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"response_chunk","content":"Hel","confidence":0.8,"emotionalTone":"warm","seq":3,"id":"srv-9"}`))
	require.NoError(t, err)

	chunk := ev.(ResponseChunk)
	assert.Equal(t, "Hel", chunk.Content)
	assert.False(t, chunk.IsComplete)
	require.NotNil(t, chunk.Confidence)
	assert.Equal(t, 0.8, *chunk.Confidence)
	assert.Equal(t, "warm", chunk.EmotionalTone)
	require.NotNil(t, chunk.Seq)
	assert.Equal(t, int64(3), *chunk.Seq)
	assert.Equal(t, "srv-9", chunk.ID)
}

func TestDecode_TerminalChunkWithoutContent(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"response_chunk","is_complete":true}`))
	require.NoError(t, err)

	chunk := ev.(ResponseChunk)
	assert.True(t, chunk.IsComplete)
	assert.Empty(t, chunk.Content)
}

func TestDecode_Response(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"response","content":"full","relatedDimension":"trust","messageId":"m-7"}`))
	require.NoError(t, err)

	resp := ev.(Response)
	assert.Equal(t, "full", resp.Content)
	assert.Equal(t, "trust", resp.RelatedDimension)
	assert.Equal(t, "m-7", resp.ID)
	assert.Nil(t, resp.Confidence)
}

func TestDecode_StateUpdate(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"state_update","state":{"joy":0.4,"significance":0.9}}`))
	require.NoError(t, err)

	su := ev.(StateUpdate)
	require.NotNil(t, su.Significance)
	assert.Equal(t, 0.9, *su.Significance)
	assert.JSONEq(t, `{"joy":0.4,"significance":0.9}`, string(su.State))
}

func TestDecode_StateUpdateWithUnusableSignificance(t *testing.T) {
	for _, frame := range []string{
		`{"type":"state_update","state":{"joy":0.4,"significance":"high"}}`,
		`{"type":"state_update","state":{"joy":0.4,"significance":null}}`,
		`{"type":"state_update","state":{"joy":0.4}}`,
	} {
		ev, err := Decode([]byte(frame))
		require.NoError(t, err, frame)
		su := ev.(StateUpdate)
		assert.Nil(t, su.Significance, frame)
		assert.Contains(t, string(su.State), `"joy":0.4`)
	}
}

func TestDecode_SideChannelFallsBackToMessage(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"side_channel","message":"note from outside"}`))
	require.NoError(t, err)
	assert.Equal(t, "note from outside", ev.(SideChannel).Content)
}

func TestDecode_ErrorWithoutMessage(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"error"}`))
	require.NoError(t, err)
	assert.Equal(t, ServerError{}, ev)
}

func TestDecode_Unknown(t *testing.T) {
	frame := []byte(`{"type":"avatar_pose","pose":"wave"}`)
	ev, err := Decode(frame)
	require.NoError(t, err)

	unk := ev.(Unknown)
	assert.Equal(t, "avatar_pose", unk.Type)
	assert.Equal(t, Kind("avatar_pose"), unk.Kind())
	assert.JSONEq(t, string(frame), string(unk.Raw))
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `nope`, ErrMalformedFrame},
		{"no type", `{"content":"x"}`, ErrMalformedFrame},
		{"typing without status", `{"type":"typing"}`, ErrMissingField},
		{"chunk without content", `{"type":"response_chunk"}`, ErrMissingField},
		{"response without content", `{"type":"response"}`, ErrMissingField},
		{"state without state", `{"type":"state_update"}`, ErrMissingField},
		{"state null", `{"type":"state_update","state":null}`, ErrMissingField},
		{"state not object", `{"type":"state_update","state":[1,2]}`, ErrMalformedFrame},
		{"side channel without text", `{"type":"side_channel"}`, ErrMissingField},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.frame))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

// recorder counts which handler method each event reaches.
type recorder struct {
	calls []string
}

func (r *recorder) add(name string) error {
	r.calls = append(r.calls, name)
	return nil
}

func (r *recorder) HandleTyping(Typing) error               { return r.add("typing") }
func (r *recorder) HandleResponseChunk(ResponseChunk) error { return r.add("chunk") }
func (r *recorder) HandleResponse(Response) error           { return r.add("response") }
func (r *recorder) HandleStateUpdate(StateUpdate) error     { return r.add("state") }
func (r *recorder) HandleSideChannel(SideChannel) error     { return r.add("side") }
func (r *recorder) HandleError(ServerError) error           { return r.add("error") }
func (r *recorder) HandleUnknown(Unknown) error             { return r.add("unknown") }

func TestAccept_DispatchesOncePerEvent(t *testing.T) {
	evs := []Event{
		Typing{}, ResponseChunk{}, Response{}, StateUpdate{}, SideChannel{}, ServerError{}, Unknown{Type: "x"},
	}
	r := &recorder{}
	for _, ev := range evs {
		require.NoError(t, ev.Accept(r))
	}
	assert.Equal(t, []string{"typing", "chunk", "response", "state", "side", "error", "unknown"}, r.calls)
}

func TestNewChat_WireShape(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	data, err := json.Marshal(NewChat("m1", "hi", at))
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"chat","content":"hi","timestamp":1700000000123,"messageId":"m1","metadata":{}}`, string(data))
}
