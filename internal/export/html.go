// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/jeranaias/companion-tui/internal/emotion"
	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a self-contained HTML page.
//
// Message text is treated as Markdown. Raw HTML in messages is dropped by
// the renderer and the result is sanitized again before it is embedded.
type HTMLExporter struct {
	options  *Options
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options: opts,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Export converts a transcript to HTML format.
func (e *HTMLExporter) Export(t *storage.Transcript) ([]byte, error) {
	if t == nil {
		return nil, ErrNilTranscript
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(t.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"companion\">\n")
	if !t.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", t.CreatedAt.Format(time.RFC3339)))
	}
	sb.WriteString(e.getCSS())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(t))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range t.Messages {
		body, err := e.renderMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("render message %s: %w", msg.ID, err)
		}
		sb.WriteString(body)
	}
	sb.WriteString("        </main>\n")

	if !t.UpdatedAt.IsZero() {
		sb.WriteString("        <footer class=\"footer\">\n")
		sb.WriteString(fmt.Sprintf("            <p>Saved %s</p>\n", t.UpdatedAt.Format("January 2, 2006 at 3:04 PM")))
		sb.WriteString("        </footer>\n")
	}

	sb.WriteString("    </div>\n")
	sb.WriteString(e.getScript())
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(t *storage.Transcript) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(t.Title)))
	sb.WriteString("            <div class=\"metadata\">\n")
	if t.Server != "" {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Server:</strong> %s</span>\n", html.EscapeString(t.Server)))
	}
	if !t.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(t.CreatedAt)))
	}
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(t.Messages)))
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")

	if dims := (emotion.State{Payload: t.State}).Dimensions(); len(dims) > 0 {
		sb.WriteString("            <div class=\"mood\">\n")
		for _, d := range dims {
			pct := d.Value * 100
			if pct < 0 {
				pct = 0
			} else if pct > 100 {
				pct = 100
			}
			sb.WriteString(fmt.Sprintf("                <div class=\"dimension\"><span class=\"dim-name\">%s</span><span class=\"dim-bar\"><span style=\"width: %.0f%%\"></span></span><span class=\"dim-value\">%.2f</span></div>\n",
				html.EscapeString(d.Name), pct, d.Value))
		}
		sb.WriteString("            </div>\n")
	}

	sb.WriteString("        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg *model.Message) (string, error) {
	var sb strings.Builder

	classes := "message " + senderClass(msg.Sender) + "-message"
	if msg.Status == model.StatusError {
		classes += " failed"
	}
	sb.WriteString(fmt.Sprintf("            <div class=\"%s\">\n", classes))

	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", html.EscapeString(senderLabel(msg.Sender))))
	if msg.Status == model.StatusError {
		sb.WriteString("                    <span class=\"error\">not sent</span>\n")
	}
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")

	content, err := e.formatContent(msg.Text)
	if err != nil {
		return "", err
	}
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(content)
	sb.WriteString("                </div>\n")

	if e.options.IncludeMetadata {
		if details := messageDetails(msg); len(details) > 0 {
			sb.WriteString("                <div class=\"message-stats\">\n")
			for _, d := range details {
				sb.WriteString(fmt.Sprintf("                    <span class=\"stat\">%s</span>\n", html.EscapeString(d)))
			}
			sb.WriteString("                </div>\n")
		}
	}

	sb.WriteString("            </div>\n")
	return sb.String(), nil
}

// formatContent renders message Markdown to sanitized HTML.
func (e *HTMLExporter) formatContent(text string) (string, error) {
	var buf bytes.Buffer
	if err := e.markdown.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return e.policy.Sanitize(buf.String()), nil
}

// senderClass maps a sender to its CSS class prefix.
func senderClass(s model.Sender) string {
	switch s {
	case model.SenderUser:
		return "user"
	case model.SenderAI:
		return "companion"
	case model.SenderSystem:
		return "system"
	default:
		return "unknown"
	}
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

// getCSS returns the embedded stylesheet. Both themes are defined so the
// toggle works offline.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --sans: system-ui, -apple-system, "Segoe UI", Roboto, sans-serif;
            --mono: ui-monospace, "SF Mono", Menlo, Consolas, monospace;
        }
        .dark-theme {
            --page: #17161f; --card: #211f2d; --raised: #2e2b3f; --line: #3b3752;
            --ink: #e6e1f5; --ink-soft: #b8b1d1; --ink-faint: #7b7596;
            --you: #1d2233; --companion: #241f33; --code: #15141c;
            --blue: #82aaff; --violet: #c39bff; --green: #a6d189; --red: #f28b9c;
        }
        .light-theme {
            --page: #f6f5fa; --card: #ffffff; --raised: #eeebf7; --line: #ddd8ea;
            --ink: #25212f; --ink-soft: #575069; --ink-faint: #8a8499;
            --you: #eef3ff; --companion: #f6f0ff; --code: #f3f1f8;
            --blue: #2f5fd0; --violet: #7a3fd1; --green: #3c7d28; --red: #c43850;
        }
        body { font: 16px/1.6 var(--sans); color: var(--ink); background: var(--page); padding: 24px 16px; }
        .container { max-width: 860px; margin: 0 auto; background: var(--card); border-radius: 14px; overflow: hidden; }
        .header { padding: 28px 32px; background: var(--raised); border-bottom: 1px solid var(--line); }
        .header h1 { font-size: 26px; margin-bottom: 12px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 14px; align-items: center; font-size: 14px; color: var(--ink-soft); }
        .theme-toggle { margin-left: auto; padding: 4px 10px; border: 1px solid var(--line); border-radius: 6px; background: var(--card); color: var(--ink); cursor: pointer; }
        .mood { margin-top: 16px; display: grid; gap: 6px; max-width: 420px; }
        .dimension { display: grid; grid-template-columns: 120px 1fr 48px; gap: 8px; align-items: center; font-size: 13px; color: var(--ink-soft); }
        .dim-bar { height: 6px; border-radius: 3px; background: var(--card); overflow: hidden; }
        .dim-bar span { display: block; height: 100%; background: var(--violet); }
        .dim-value { font-family: var(--mono); text-align: right; }
        .conversation { padding: 24px 32px; }
        .message { margin-bottom: 18px; padding: 16px 20px; border-radius: 10px; border-left: 4px solid transparent; }
        .user-message { background: var(--you); border-left-color: var(--blue); }
        .companion-message { background: var(--companion); border-left-color: var(--violet); }
        .system-message { background: var(--raised); border-left-color: var(--ink-faint); font-style: italic; }
        .message.failed { border-left-color: var(--red); opacity: 0.8; }
        .message-header { display: flex; gap: 10px; align-items: baseline; margin-bottom: 8px; font-size: 14px; }
        .role-label { font-weight: 600; }
        .timestamp { margin-left: auto; font: 12px var(--mono); color: var(--ink-faint); }
        .error { color: var(--red); font-size: 13px; }
        .message-content p + p { margin-top: 10px; }
        .message-content pre { margin: 12px 0; padding: 14px; overflow-x: auto; border: 1px solid var(--line); border-radius: 8px; background: var(--code); }
        .message-content code { font: 14px var(--mono); padding: 1px 5px; border-radius: 4px; background: var(--code); color: var(--violet); }
        .message-content pre code { padding: 0; background: none; color: var(--ink); }
        .message-content ul, .message-content ol { padding-left: 22px; }
        .message-stats { display: flex; flex-wrap: wrap; gap: 14px; margin-top: 10px; padding-top: 8px; border-top: 1px solid var(--line); font-size: 13px; color: var(--ink-faint); }
        .footer { padding: 16px 32px; text-align: center; font-size: 13px; color: var(--ink-faint); border-top: 1px solid var(--line); }
        @media print {
            body { padding: 0; }
            .theme-toggle { display: none; }
            .message { page-break-inside: avoid; }
        }
        @media (max-width: 640px) {
            .header, .conversation, .footer { padding: 16px; }
        }
    </style>
`
}

// =============================================================================
// EMBEDDED JAVASCRIPT
// =============================================================================

// getScript returns the theme toggle. The choice is remembered per browser.
func (e *HTMLExporter) getScript() string {
	return `    <script>
        function toggleTheme() {
            const next = document.body.classList.contains('dark-theme') ? 'light' : 'dark';
            document.body.className = next + '-theme';
            localStorage.setItem('companion-theme', next);
        }
        const saved = localStorage.getItem('companion-theme');
        if (saved === 'light' || saved === 'dark') {
            document.body.className = saved + '-theme';
        }
    </script>
`
}
