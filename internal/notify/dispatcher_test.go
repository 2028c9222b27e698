// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu  sync.Mutex
	got []string
}

func (s *recordingSink) Notify(kind Kind, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, string(kind)+":"+message)
	return nil
}

func (s *recordingSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, Options{})

	require.True(t, d.Notify(Info, "one"))
	require.True(t, d.Notify(Error, "two 2"))
	require.True(t, d.Notify(Info, "three"))
	d.Close()

	assert.Equal(t, []string{"info:one", "error:two 2", "info:three"}, sink.all())
}

func TestDispatcher_NoDedup(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, Options{})

	d.Notify(Error, "same")
	d.Notify(Error, "same")
	d.Close()

	assert.Len(t, sink.all(), 2)
}

func TestDispatcher_SinkFailuresAreSwallowed(t *testing.T) {
	var mu sync.Mutex
	var delivered []string
	calls := 0
	sink := SinkFunc(func(kind Kind, message string) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		switch calls {
		case 1:
			return errors.New("toast area gone")
		case 2:
			panic("boom")
		}
		delivered = append(delivered, message)
		return nil
	})

	d := NewDispatcher(sink, Options{})
	d.Notify(Info, "a")
	d.Notify(Info, "b")
	d.Notify(Info, "c")
	d.Close()

	assert.Equal(t, []string{"c"}, delivered)
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	sink := SinkFunc(func(Kind, string) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	d := NewDispatcher(sink, Options{QueueSize: 1})
	require.True(t, d.Notify(Info, "held by worker"))
	<-started
	require.True(t, d.Notify(Info, "queued"))

	done := make(chan bool)
	go func() { done <- d.Notify(Info, "overflow") }()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	assert.Equal(t, uint64(1), d.Dropped())

	close(release)
	d.Close()
}

func TestDispatcher_NotifyAfterClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, Options{})
	d.Close()
	d.Close()

	assert.False(t, d.Notify(Info, "late"))
	assert.Empty(t, sink.all())
}
