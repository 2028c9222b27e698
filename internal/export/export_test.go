// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/storage"
)

func sampleTranscript() *storage.Transcript {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	user := model.NewUserMessage("Did you **sleep** well?")
	user.Status = model.StatusRead
	user.Timestamp = at

	conf := 0.82
	ai := model.NewAIMessage("r1", "Like a *cat* in the sun.\n\n<script>alert(1)</script>", &model.Metadata{
		Confidence:       &conf,
		EmotionalTone:    "content",
		RelatedDimension: "calm",
		ProcessingTime:   1500 * time.Millisecond,
	})
	ai.Timestamp = at.Add(2 * time.Second)

	failed := model.NewUserMessage("still there?")
	failed.Status = model.StatusError
	failed.Timestamp = at.Add(time.Minute)

	return &storage.Transcript{
		ID:        "t-1",
		Title:     "Morning: check-in",
		Server:    "ws://localhost:8787/ws",
		CreatedAt: at,
		UpdatedAt: at.Add(time.Hour),
		Messages:  []*model.Message{user, ai, failed},
		State:     json.RawMessage(`{"calm":0.8,"joy":0.25,"significance":0.9}`),
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		mime string
	}{
		{"markdown", ".md", "text/markdown"},
		{"MD", ".md", "text/markdown"},
		{"json", ".json", "application/json"},
		{" html ", ".html", "text/html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := ForFormat(tt.name, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, exp.FileExtension())
			assert.Equal(t, tt.mime, exp.MimeType())
		})
	}

	_, err := ForFormat("pdf", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(DefaultOptions()).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: \"Morning: check-in\"\n"))
	assert.Contains(t, md, "server: \"ws://localhost:8787/ws\"")
	assert.Contains(t, md, "messages: 3")
	assert.Contains(t, md, "# Morning: check-in")
	assert.Contains(t, md, "- **Emotional State**: calm 0.80, joy 0.25")
	assert.NotContains(t, md, "significance")

	assert.Contains(t, md, "### [You] <sub>09:30:00</sub>")
	assert.Contains(t, md, "Did you **sleep** well?")
	assert.Contains(t, md, "### [Companion] <sub>09:30:02</sub>")
	assert.Contains(t, md, "<sub>Tone: content | Confidence: 82% | Dimension: calm | Response: 1.50s</sub>")
	assert.Contains(t, md, "### [You] _(not sent)_")
}

func TestMarkdownExporter_Minimal(t *testing.T) {
	opts := &Options{}
	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Morning: check-in"))
	assert.NotContains(t, md, "Session Information")
	assert.NotContains(t, md, "<sub>")
	assert.Contains(t, md, "### [Companion]\n")
}

func TestMarkdownExporter_Empty(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(&storage.Transcript{Title: "Nothing"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "_No messages._")

	_, err = NewMarkdownExporter(nil).Export(nil)
	assert.ErrorIs(t, err, ErrNilTranscript)
}

func TestJSONExporter_IsLoadableTranscript(t *testing.T) {
	src := sampleTranscript()
	out, err := NewJSONExporter(&Options{}).Export(src)
	require.NoError(t, err)

	var got storage.Transcript
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, src.ID, got.ID)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, model.StatusError, got.Messages[2].Status)
	assert.JSONEq(t, string(src.State), string(got.State))
}

func TestHTMLExporter(t *testing.T) {
	out, err := NewHTMLExporter(DefaultOptions()).Export(sampleTranscript())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<title>Morning: check-in</title>")
	assert.Contains(t, page, `<body class="dark-theme">`)
	assert.Contains(t, page, "ws://localhost:8787/ws")
	assert.Contains(t, page, `<div class="message user-message">`)
	assert.Contains(t, page, `<div class="message companion-message">`)
	assert.Contains(t, page, `<div class="message user-message failed">`)
	assert.Contains(t, page, "not sent")

	assert.Contains(t, page, "<strong>sleep</strong>")
	assert.Contains(t, page, "<em>cat</em>")
	assert.NotContains(t, page, "alert(1)")

	assert.Contains(t, page, `<span class="dim-name">calm</span>`)
	assert.Contains(t, page, "width: 80%")
	assert.Contains(t, page, `<span class="stat">Tone: content</span>`)
}

func TestHTMLExporter_EscapesTitle(t *testing.T) {
	tr := sampleTranscript()
	tr.Title = `<img src=x onerror="boom">`

	out, err := NewHTMLExporter(&Options{Theme: "light"}).Export(tr)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `<body class="light-theme">`)
	assert.NotContains(t, page, `<img src=x`)
	assert.Contains(t, page, "&lt;img src=x")
	assert.NotContains(t, page, `class="header"`)
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	opts := DefaultOptions()
	opts.OutputDir = dir

	exp := NewMarkdownExporter(opts)
	path, err := ExportToFile(sampleTranscript(), exp, opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Morning-_check-in_t-1.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Morning: check-in")

	again, err := ExportToFile(sampleTranscript(), exp, opts)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	_, err = ExportToFile(nil, exp, opts)
	assert.ErrorIs(t, err, ErrNilTranscript)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "hello_world"},
		{`a/b\c:d*e?f"g<h>i|j`, "a-b-c-d-e-f-g-h-i-j"},
		{"..", "conversation"},
		{"", "conversation"},
		{"bell\x07", "bell-"},
		{"cafe\u0301 talk", "caf\u00e9_talk"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
