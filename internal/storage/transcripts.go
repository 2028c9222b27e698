// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT TYPES
// =============================================================================

// Transcript is a saved conversation.
type Transcript struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Server    string    `json:"server,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*model.Message `json:"messages"`

	// State is the last emotional state payload seen, verbatim.
	State json.RawMessage `json:"state,omitempty"`
}

// TranscriptMeta is the listing view of a transcript.
type TranscriptMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// NewTranscript captures messages as a new, unsaved transcript. Messages are copied.
func NewTranscript(server string, messages []*model.Message) *Transcript {
	t := &Transcript{Server: server, Messages: make([]*model.Message, 0, len(messages))}
	for _, m := range messages {
		t.Messages = append(t.Messages, m.Clone())
	}
	return t
}

// Preview returns the first user message, shortened for listings.
func (t *Transcript) Preview() string {
	for _, m := range t.Messages {
		if m.Sender == model.SenderUser && m.Text != "" {
			return util.TruncateWidth(util.FirstLine(m.Text), 80)
		}
	}
	return ""
}

// Markdown renders the transcript for reading or piping into other tools.
func (t *Transcript) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# " + t.Title + "\n\n")
	sb.WriteString("Saved: " + t.UpdatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, m := range t.Messages {
		sb.WriteString("**" + m.Sender.DisplayName() + "** (" + m.Timestamp.Format("15:04") + ")")
		if m.Status == model.StatusError {
			sb.WriteString(" _not sent_")
		}
		if m.Metadata != nil && m.Metadata.EmotionalTone != "" {
			sb.WriteString(" _" + m.Metadata.EmotionalTone + "_")
		}
		sb.WriteString(":\n\n")
		sb.WriteString(m.Text)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// ErrTranscriptNotFound is returned when no transcript has the requested id.
var ErrTranscriptNotFound = errors.New("transcript not found")

// ErrInvalidID is returned for ids that could escape the store directory.
var ErrInvalidID = errors.New("invalid transcript id")

// TranscriptStore keeps transcripts as one JSON file each under BaseDir.
type TranscriptStore struct {
	BaseDir string

	// MaxTranscripts limits stored transcripts (0 = unlimited)
	MaxTranscripts int
}

// NewTranscriptStore creates a store rooted at dir, creating it if needed.
func NewTranscriptStore(dir string) (*TranscriptStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}
	return &TranscriptStore{BaseDir: dir, MaxTranscripts: 100}, nil
}

// Save writes the transcript and returns its id. A missing id and title
// are generated; CreatedAt is kept across saves.
func (s *TranscriptStore) Save(t *Transcript) (string, error) {
	if t.ID == "" {
		t.ID = generateTranscriptID()
	}
	if t.Title == "" {
		t.Title = t.Preview()
		if t.Title == "" {
			t.Title = "Conversation"
		}
	}
	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	path, err := s.filePath(t.ID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}
	return t.ID, nil
}

// Load reads a transcript by id.
func (s *TranscriptStore) Load(id string) (*Transcript, error) {
	path, err := s.filePath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTranscriptNotFound, id)
		}
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", id, err)
	}
	return &t, nil
}

// LoadByIndex loads a transcript by its position in List (0 = most recent).
func (s *TranscriptStore) LoadByIndex(index int) (*Transcript, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, fmt.Errorf("%w: index %d", ErrTranscriptNotFound, index)
	}
	return s.Load(metas[index].ID)
}

// Resolve loads by id, or by list position when ref is a small number.
func (s *TranscriptStore) Resolve(ref string) (*Transcript, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		return s.LoadByIndex(n)
	}
	return s.Load(ref)
}

// List returns all readable transcripts, most recently saved first.
// Corrupt files are skipped.
func (s *TranscriptStore) List() ([]TranscriptMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []TranscriptMeta{}, nil
		}
		return nil, err
	}

	metas := []TranscriptMeta{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		metas = append(metas, TranscriptMeta{
			ID:           t.ID,
			Title:        t.Title,
			UpdatedAt:    t.UpdatedAt,
			MessageCount: len(t.Messages),
			Preview:      t.Preview(),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes a transcript by id.
func (s *TranscriptStore) Delete(id string) error {
	path, err := s.filePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrTranscriptNotFound, id)
		}
		return err
	}
	return nil
}

// enforceLimit removes the oldest transcripts beyond MaxTranscripts.
func (s *TranscriptStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}
	for _, m := range metas[s.MaxTranscripts:] {
		_ = s.Delete(m.ID)
	}
}

func (s *TranscriptStore) filePath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.BaseDir, id+".json"), nil
}

func generateTranscriptID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return time.Now().Format("20060102-150405") + "-" + hex.EncodeToString(b)
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatList renders transcript metadata as an aligned table.
func FormatList(metas []TranscriptMeta) string {
	if len(metas) == 0 {
		return "No saved transcripts."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("#", 4) + util.PadRight("ID", 30) + util.PadRight("Saved", 18) + util.PadRight("Msgs", 6) + "Title\n")
	for i, m := range metas {
		sb.WriteString(util.PadRight(strconv.Itoa(i), 4))
		sb.WriteString(util.PadRight(m.ID, 30))
		sb.WriteString(util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 18))
		sb.WriteString(util.PadRight(strconv.Itoa(m.MessageCount), 6))
		sb.WriteString(util.TruncateWidth(m.Title, 40))
		sb.WriteString("\n")
	}
	return sb.String()
}
