// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package connection tracks channel liveness and derives a coarse
// connection-quality classification from latency samples.
package connection

import (
	"sync"
	"time"
)

// =============================================================================
// STATE
// =============================================================================

// State is the liveness of the channel as reported by the adapter.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// =============================================================================
// QUALITY
// =============================================================================

// Quality is a coarse bucketing of round-trip latency for display.
type Quality string

const (
	QualityExcellent    Quality = "excellent"
	QualityGood         Quality = "good"
	QualityPoor         Quality = "poor"
	QualityDisconnected Quality = "disconnected"
)

// Latency thresholds in milliseconds.
const (
	ExcellentBelowMs = 50
	GoodBelowMs      = 200
)

// Classify maps liveness and latency to a quality bucket.
func Classify(connected bool, latencyMs int64) Quality {
	switch {
	case !connected:
		return QualityDisconnected
	case latencyMs < ExcellentBelowMs:
		return QualityExcellent
	case latencyMs < GoodBelowMs:
		return QualityGood
	default:
		return QualityPoor
	}
}

// =============================================================================
// TRACKER
// =============================================================================

// Snapshot is a point-in-time view of the tracker.
type Snapshot struct {
	State     State
	LatencyMs int64
	// Sampled is false from a fresh connect until the first latency sample.
	// Quality is then Classify(true, 0).
	Sampled   bool
	Quality   Quality
	Degraded  bool
	UpdatedAt time.Time
}

// Tracker holds connection state and the latest latency sample.
//
// A server error degrades quality to poor until Recover is called; a new
// connection drops the previous latency sample. Safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	state     State
	latencyMs int64
	sampled   bool
	degraded  bool
	updatedAt time.Time

	onChange func(Snapshot)
}

// NewTracker creates a tracker in the disconnected state.
// onChange, if non-nil, is called after every recomputation.
func NewTracker(onChange func(Snapshot)) *Tracker {
	return &Tracker{
		state:     StateDisconnected,
		updatedAt: time.Now(),
		onChange:  onChange,
	}
}

// SetState records a connection state transition.
func (t *Tracker) SetState(s State) {
	t.mu.Lock()
	if s == StateConnected && t.state != StateConnected {
		// fresh connection: wait for the next sample
		t.latencyMs = 0
		t.sampled = false
	}
	if s != StateConnected {
		t.degraded = false
	}
	t.state = s
	t.updatedAt = time.Now()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.emit(snap)
}

// Sample records a latency measurement.
func (t *Tracker) Sample(latency time.Duration) {
	t.mu.Lock()
	t.latencyMs = latency.Milliseconds()
	t.sampled = true
	t.updatedAt = time.Now()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.emit(snap)
}

// Degrade forces poor quality until Recover.
func (t *Tracker) Degrade() {
	t.mu.Lock()
	t.degraded = true
	t.updatedAt = time.Now()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.emit(snap)
}

// Recover clears a previous Degrade. It is a no-op when not degraded.
func (t *Tracker) Recover() {
	t.mu.Lock()
	if !t.degraded {
		t.mu.Unlock()
		return
	}
	t.degraded = false
	t.updatedAt = time.Now()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.emit(snap)
}

// State returns the current connection state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// IsConnected reports whether the channel is connected.
func (t *Tracker) IsConnected() bool {
	return t.State() == StateConnected
}

// Quality returns the current classification.
func (t *Tracker) Quality() Quality {
	return t.Snapshot().Quality
}

// Snapshot returns the current state, latency and quality.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	q := Classify(t.state == StateConnected, t.latencyMs)
	if t.degraded && q != QualityDisconnected {
		q = QualityPoor
	}
	return Snapshot{
		State:     t.state,
		LatencyMs: t.latencyMs,
		Sampled:   t.sampled,
		Quality:   q,
		Degraded:  t.degraded,
		UpdatedAt: t.updatedAt,
	}
}

func (t *Tracker) emit(s Snapshot) {
	if t.onChange != nil {
		t.onChange(s)
	}
}
