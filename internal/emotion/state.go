// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package emotion keeps the companion's emotional state as pushed by the
// server. Payloads are stored verbatim; this package never interprets them
// beyond reading numeric dimensions for display.
package emotion

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// SignificanceField is the payload key carrying the update's significance.
const SignificanceField = "significance"

// State is one emotional state update.
type State struct {
	Payload      json.RawMessage
	Significance *float64
	ReceivedAt   time.Time
}

// Dimension is one named numeric value of a state payload.
type Dimension struct {
	Name  string
	Value float64
}

// Dimensions returns the numeric top-level fields of the payload, largest
// first, excluding significance. Non-numeric fields are ignored.
func (s State) Dimensions() []Dimension {
	var fields map[string]any
	if err := json.Unmarshal(s.Payload, &fields); err != nil {
		return nil
	}
	dims := make([]Dimension, 0, len(fields))
	for name, v := range fields {
		if name == SignificanceField {
			continue
		}
		if f, ok := v.(float64); ok {
			dims = append(dims, Dimension{Name: name, Value: f})
		}
	}
	sort.Slice(dims, func(i, j int) bool {
		if dims[i].Value != dims[j].Value {
			return dims[i].Value > dims[j].Value
		}
		return dims[i].Name < dims[j].Name
	})
	return dims
}

// Store receives state updates.
type Store interface {
	UpdateState(ctx context.Context, s State) error
}

// Reader returns the most recent state.
type Reader interface {
	Latest(ctx context.Context) (State, bool, error)
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore keeps the latest state and a bounded history in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	history []State
	limit   int
}

// NewMemoryStore keeps at most limit states; limit <= 0 keeps only the latest.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 1
	}
	return &MemoryStore{limit: limit}
}

func (m *MemoryStore) UpdateState(_ context.Context, s State) error {
	if s.ReceivedAt.IsZero() {
		s.ReceivedAt = time.Now()
	}
	s.Payload = append(json.RawMessage(nil), s.Payload...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, s)
	if over := len(m.history) - m.limit; over > 0 {
		m.history = append(m.history[:0:0], m.history[over:]...)
	}
	return nil
}

func (m *MemoryStore) Latest(_ context.Context) (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return State{}, false, nil
	}
	return m.history[len(m.history)-1], true, nil
}

// History returns the retained states, oldest first.
func (m *MemoryStore) History() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]State(nil), m.history...)
}

// =============================================================================
// FAN-OUT
// =============================================================================

// Tee forwards every update to each store in order, stopping at the first error.
type Tee []Store

func (t Tee) UpdateState(ctx context.Context, s State) error {
	for _, st := range t {
		if err := st.UpdateState(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
