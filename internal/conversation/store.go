// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the authoritative in-memory message list and
// the assembler that folds streamed response chunks into it.
package conversation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/companion-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDuplicateID is returned when appending a message whose id exists.
	ErrDuplicateID = errors.New("duplicate message id")
	// ErrNotFound is returned when no message has the requested id.
	ErrNotFound = errors.New("message not found")
	// ErrImmutableField is returned when a patch touches id, sender,
	// timestamp or finalization, or retracts metadata.
	ErrImmutableField = errors.New("immutable message field")
	// ErrFinalized is returned when a patch changes text or metadata of a
	// finalized message.
	ErrFinalized = errors.New("message is finalized")
	// ErrStreamInProgress is returned when starting a stream while another
	// one has not been finalized.
	ErrStreamInProgress = errors.New("a response is already streaming")
	// ErrMissingID is returned when appending a message without an id.
	ErrMissingID = errors.New("message id is required")
)

// =============================================================================
// STORE
// =============================================================================

// Store is the ordered message list of one conversation.
//
// Messages keep arrival order. At most one message is in progress at a time,
// referenced by CurrentResponseID. All methods are safe for concurrent use and
// hand out copies, never the stored pointers.
type Store struct {
	mu                sync.RWMutex
	messages          []*model.Message
	index             map[string]int
	currentResponseID string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Append inserts a message at the end of the list.
func (s *Store) Append(msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg)
}

func (s *Store) appendLocked(msg *model.Message) error {
	if msg == nil || msg.ID == "" {
		return ErrMissingID
	}
	if _, exists := s.index[msg.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, msg.ID)
	}
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg.Clone())
	return nil
}

// BeginStreaming appends an unfinalized message and makes it the current response.
func (s *Store) BeginStreaming(msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentResponseID != "" {
		return fmt.Errorf("%w: %s", ErrStreamInProgress, s.currentResponseID)
	}
	stream := msg.Clone()
	if stream != nil {
		stream.Finalized = false
	}
	if err := s.appendLocked(stream); err != nil {
		return err
	}
	s.currentResponseID = stream.ID
	return nil
}

// MutateByID applies patch to a copy of the message and commits the copy if
// only text, status and metadata changed, within the message's rules.
func (s *Store) MutateByID(id string, patch func(m *model.Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cur := s.messages[i]
	next := cur.Clone()
	patch(next)

	if err := checkPatch(cur, next); err != nil {
		return fmt.Errorf("message %s: %w", id, err)
	}
	s.messages[i] = next
	return nil
}

func checkPatch(cur, next *model.Message) error {
	switch {
	case next.ID != cur.ID:
		return fmt.Errorf("%w: id", ErrImmutableField)
	case next.Sender != cur.Sender:
		return fmt.Errorf("%w: sender", ErrImmutableField)
	case !next.Timestamp.Equal(cur.Timestamp):
		return fmt.Errorf("%w: timestamp", ErrImmutableField)
	case next.Finalized != cur.Finalized:
		return fmt.Errorf("%w: finalized", ErrImmutableField)
	case cur.Metadata != nil && next.Metadata == nil:
		return fmt.Errorf("%w: metadata cannot be retracted", ErrImmutableField)
	}
	if cur.Finalized {
		if next.Text != cur.Text {
			return fmt.Errorf("%w: text", ErrFinalized)
		}
		if !metadataEqual(cur.Metadata, next.Metadata) {
			return fmt.Errorf("%w: metadata", ErrFinalized)
		}
	}
	return cur.Status.Transition(next.Status)
}

func metadataEqual(a, b *model.Metadata) bool {
	if a == nil || b == nil {
		return a == b
	}
	if (a.Confidence == nil) != (b.Confidence == nil) {
		return false
	}
	if a.Confidence != nil && *a.Confidence != *b.Confidence {
		return false
	}
	return a.ProcessingTime == b.ProcessingTime &&
		a.EmotionalTone == b.EmotionalTone &&
		a.RelatedDimension == b.RelatedDimension
}

// FinalizeStreaming freezes the current response and clears the reference.
// It returns the finalized id, or "" when nothing was streaming.
func (s *Store) FinalizeStreaming() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.currentResponseID
	if id == "" {
		return ""
	}
	if i, ok := s.index[id]; ok {
		s.messages[i].Finalized = true
	}
	s.currentResponseID = ""
	return id
}

// Clear empties the conversation and drops any in-progress response.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.index = make(map[string]int)
	s.currentResponseID = ""
}

// =============================================================================
// READS
// =============================================================================

// CurrentResponseID returns the id of the streaming response, or "".
func (s *Store) CurrentResponseID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentResponseID
}

// Get returns a copy of the message with the given id.
func (s *Store) Get(id string) (*model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.messages[i].Clone(), true
}

// Messages returns a copy of the conversation in order.
func (s *Store) Messages() []*model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
