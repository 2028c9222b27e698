// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/companion-tui/internal/emotion"
	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown format.
func (e *MarkdownExporter) Export(t *storage.Transcript) ([]byte, error) {
	if t == nil {
		return nil, ErrNilTranscript
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(t.Title)))
		if t.Server != "" {
			sb.WriteString(fmt.Sprintf("server: %s\n", escapeYAML(t.Server)))
		}
		if !t.CreatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("date: %s\n", t.CreatedAt.Format(time.RFC3339)))
		}
		if !t.UpdatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("updated: %s\n", t.UpdatedAt.Format(time.RFC3339)))
		}
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(t.Messages)))
		sb.WriteString("generator: companion\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(t.Title)))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		if t.Server != "" {
			sb.WriteString(fmt.Sprintf("- **Server**: %s\n", t.Server))
		}
		if !t.CreatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("- **Created**: %s\n", formatTimestamp(t.CreatedAt)))
		}
		if !t.UpdatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(t.UpdatedAt)))
		}
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(t.Messages)))
		if mood := formatDimensions((emotion.State{Payload: t.State}).Dimensions()); mood != "" {
			sb.WriteString(fmt.Sprintf("- **Emotional State**: %s\n", mood))
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	if len(t.Messages) == 0 {
		sb.WriteString("_No messages._\n")
	}

	for i, msg := range t.Messages {
		label := senderLabel(msg.Sender)
		if msg.Status == model.StatusError {
			label += " _(not sent)_"
		}
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		sb.WriteString(strings.TrimSpace(msg.Text))
		sb.WriteString("\n\n")

		if e.options.IncludeMetadata {
			if details := messageDetails(msg); len(details) > 0 {
				sb.WriteString(fmt.Sprintf("<sub>%s</sub>\n\n", strings.Join(details, " | ")))
			}
		}

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// senderLabel returns a bracketed label for the message sender.
func senderLabel(s model.Sender) string {
	if s == "" {
		return "[Unknown]"
	}
	return "[" + s.DisplayName() + "]"
}

// messageDetails lists the response metadata worth showing for a message.
func messageDetails(msg *model.Message) []string {
	if msg.Metadata == nil {
		return nil
	}
	md := msg.Metadata
	var parts []string
	if md.EmotionalTone != "" {
		parts = append(parts, "Tone: "+md.EmotionalTone)
	}
	if md.Confidence != nil {
		parts = append(parts, fmt.Sprintf("Confidence: %.0f%%", *md.Confidence*100))
	}
	if md.RelatedDimension != "" {
		parts = append(parts, "Dimension: "+md.RelatedDimension)
	}
	if md.ProcessingTime > 0 {
		parts = append(parts, "Response: "+formatDuration(md.ProcessingTime))
	}
	return parts
}

// formatDimensions renders emotional dimensions as "name 0.80, name 0.20".
func formatDimensions(dims []emotion.Dimension) string {
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		parts = append(parts, fmt.Sprintf("%s %.2f", d.Name, d.Value))
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes values that YAML would misread.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
