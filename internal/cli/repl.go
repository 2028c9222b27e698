// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/companion-tui/internal/chatsync"
	"github.com/jeranaias/companion-tui/internal/config"
	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/notify"
	"github.com/jeranaias/companion-tui/internal/ui/chat"
	"github.com/jeranaias/companion-tui/internal/ui/components"
	"github.com/jeranaias/companion-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Violet).
			Bold(true)

	companionStyle = lipgloss.NewStyle().
			Foreground(styles.Violet).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader is the part of liner the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// lineInput provides input history and line editing for the REPL.
type lineInput struct {
	line        *liner.State
	historyFile string
}

func newLineInput() *lineInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	in := &lineInput{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		_, _ = in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

// Prompt reads one line, recording non-empty input in the history.
func (in *lineInput) Prompt(prompt string) (string, error) {
	text, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		in.line.AppendHistory(text)
	}
	return text, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (in *lineInput) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// PRINTER
// =============================================================================

// printer writes conversation output for the REPL. It prints each companion
// and system message once, when it is complete, and every notification.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	printed  map[string]bool
	version  uint64
	haveSnap bool
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, printed: make(map[string]bool)}
}

// Line writes one line.
func (p *printer) Line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

// Banner prints the welcome lines.
func (p *printer) Banner(server string) {
	p.Line(welcomeStyle.Render("companion") + infoStyle.Render(" · "+server))
	p.Line(infoStyle.Render("Type a message and press enter. /help lists commands."))
}

// Notify implements notify.Sink.
func (p *printer) Notify(kind notify.Kind, message string) error {
	if kind == notify.Error {
		p.Line(styles.RenderError(message))
	} else {
		p.Line(styles.RenderInfo(message))
	}
	return nil
}

// Observe is a chatsync OnChange callback.
func (p *printer) Observe(snap chatsync.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.haveSnap && snap.Version <= p.version {
		return
	}
	p.version, p.haveSnap = snap.Version, true

	for _, msg := range snap.Messages {
		if msg.Sender == model.SenderUser || msg.IsStreaming() || p.printed[msg.ID] {
			continue
		}
		p.printed[msg.ID] = true
		fmt.Fprintln(p.out, formatMessage(msg))
	}
}

func formatMessage(msg *model.Message) string {
	if msg.Sender == model.SenderSystem {
		return systemStyle.Render("* " + msg.Text)
	}
	line := companionStyle.Render("companion>") + " " + msg.Text
	if msg.Metadata != nil && msg.Metadata.EmotionalTone != "" {
		line += " " + infoStyle.Render("("+msg.Metadata.EmotionalTone+")")
	}
	return line
}

// =============================================================================
// REPL
// =============================================================================

// repl reads lines and turns them into sends or slash commands.
type repl struct {
	ctx     context.Context
	conv    chat.Conversation
	save    chat.SaveFunc
	printer *printer
}

// Loop runs until /quit, EOF or an aborted prompt.
func (r *repl) Loop(in lineReader) error {
	for {
		text, err := in.Prompt(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return err
		}
		if r.ctx.Err() != nil {
			return nil
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "/") {
			if !r.command(text) {
				return nil
			}
			continue
		}
		r.send(text)
	}
}

func (r *repl) send(text string) {
	_, err := r.conv.Send(r.ctx, text)
	r.report(err)
}

// report prints failures the synchronizer did not already notify.
func (r *repl) report(err error) {
	var te *chatsync.TransmitError
	switch {
	case err == nil, errors.As(err, &te):
	case errors.Is(err, chatsync.ErrNotConnected):
		r.printer.Line(styles.RenderError("Not connected, message not sent. /retry once back online."))
	case errors.Is(err, chatsync.ErrNotResendable):
		r.printer.Line(styles.RenderWarning("That message cannot be retried"))
	default:
		r.printer.Line(styles.RenderError(err.Error()))
	}
}

// command handles a slash command and reports whether to keep reading.
func (r *repl) command(text string) bool {
	name := strings.ToLower(strings.Fields(text)[0])
	switch name {
	case "/quit", "/q", "/exit":
		return false

	case "/help", "/h":
		r.printer.Line(helpText())

	case "/retry", "/r":
		id, ok := r.conv.LastFailed()
		if !ok {
			r.printer.Line(styles.RenderInfo("Nothing to retry"))
			return true
		}
		_, err := r.conv.Resend(r.ctx, id)
		r.report(err)

	case "/save", "/s":
		if r.save == nil {
			r.printer.Line(styles.RenderWarning("Saving is not available"))
			return true
		}
		id, err := r.save(r.conv.Snapshot())
		if err != nil {
			r.printer.Line(styles.RenderError("Save failed: " + err.Error()))
			return true
		}
		r.printer.Line(styles.RenderSuccess("Saved transcript " + id))

	case "/clear", "/c":
		r.conv.Clear()
		r.printer.Line(styles.RenderInfo("Conversation cleared"))

	case "/status":
		snap := r.conv.Snapshot()
		r.printer.Line(fmt.Sprintf("%s  %d messages", components.QualityLabel(snap.Connection), len(snap.Messages)))

	default:
		r.printer.Line(styles.RenderWarning("Unknown command " + name + ", try /help"))
	}
	return true
}

func helpText() string {
	rows := [][2]string{
		{"/retry, /r", "Resend the last message that failed"},
		{"/save, /s", "Save the conversation as a transcript"},
		{"/clear, /c", "Clear the conversation"},
		{"/status", "Show connection quality"},
		{"/quit, /q", "Leave the chat"},
	}
	var sb strings.Builder
	for i, row := range rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("  " + promptStyle.Render(fmt.Sprintf("%-12s", row[0])) + " " + row[1])
	}
	return sb.String()
}
