// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MarkdownRenderer renders markdown for the terminal; *glamour.TermRenderer
// satisfies it.
type MarkdownRenderer interface {
	Render(in string) (string, error)
}

// StreamingCursor trails text that is still arriving.
const StreamingCursor = "▍"

// BubbleOptions controls how a message is drawn.
type BubbleOptions struct {
	Width    int
	Theme    *styles.Theme
	Markdown MarkdownRenderer
	Compact  bool
}

// RenderMessage draws one message as a bubble with a header line. Companion
// text is rendered as markdown once it is finalized; while streaming it is
// shown as plain text so half-written markup does not flicker.
func RenderMessage(msg *model.Message, opts BubbleOptions) string {
	if msg == nil {
		return ""
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	width := opts.Width
	if width < 24 {
		width = 24
	}
	inner := width - 6

	text := msg.Text
	style := theme.CompanionBubble
	switch msg.Sender {
	case model.SenderUser:
		style = theme.UserBubble
		if msg.Status == model.StatusError {
			style = theme.FailedBubble
		}
	case model.SenderSystem:
		style = theme.SystemBubble
	case model.SenderAI:
		switch {
		case msg.IsStreaming():
			text += StreamingCursor
		case opts.Markdown != nil && text != "":
			if out, err := opts.Markdown.Render(text); err == nil {
				text = strings.Trim(out, "\n")
			}
		}
	}
	if text == "" {
		text = "..."
	}

	body := style.Width(inner).Render(text)
	header := renderHeader(msg, theme, opts.Compact)
	if header == "" {
		return body
	}

	if msg.Sender == model.SenderUser {
		return lipgloss.JoinVertical(lipgloss.Right,
			lipgloss.PlaceHorizontal(width, lipgloss.Right, header),
			lipgloss.PlaceHorizontal(width, lipgloss.Right, body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func renderHeader(msg *model.Message, theme *styles.Theme, compact bool) string {
	parts := []string{theme.Sender.Render(msg.Sender.DisplayName())}
	if compact {
		if msg.Status == model.StatusError {
			parts = append(parts, styles.RenderError("not sent"))
		}
		return strings.Join(parts, " ")
	}

	parts = append(parts, theme.Timestamp.Render(msg.Timestamp.Format("15:04")))
	if msg.Sender == model.SenderUser {
		if msg.Status == model.StatusError {
			parts = append(parts, styles.RenderError("not sent, ctrl+r to retry"))
		} else {
			parts = append(parts, theme.Timestamp.Render(msg.Status.Icon()))
		}
	}
	if meta := describeMetadata(msg.Metadata); meta != "" {
		parts = append(parts, theme.Meta.Render(meta))
	}
	return strings.Join(parts, " ")
}

// describeMetadata summarizes response metadata for the header line.
func describeMetadata(m *model.Metadata) string {
	if m == nil {
		return ""
	}
	var out []string
	if m.EmotionalTone != "" {
		out = append(out, m.EmotionalTone)
	}
	if m.Confidence != nil {
		out = append(out, fmt.Sprintf("%.0f%% sure", *m.Confidence*100))
	}
	if m.RelatedDimension != "" {
		out = append(out, "re: "+m.RelatedDimension)
	}
	if m.ProcessingTime > 0 {
		out = append(out, m.ProcessingTime.Round(10*time.Millisecond).String())
	}
	return strings.Join(out, " · ")
}
