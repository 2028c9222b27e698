// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/companion-tui/internal/chatsync"
	"github.com/jeranaias/companion-tui/internal/ui/components"
	"github.com/jeranaias/companion-tui/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Conversation is the part of the synchronizer the screen drives.
type Conversation interface {
	Send(ctx context.Context, text string) (string, error)
	Resend(ctx context.Context, id string) (string, error)
	LastFailed() (string, bool)
	Clear()
	Snapshot() chatsync.Snapshot
}

var _ Conversation = (*chatsync.Synchronizer)(nil)

// SaveFunc persists a snapshot and returns the transcript id.
type SaveFunc func(snap chatsync.Snapshot) (string, error)

// Options configures the chat screen.
type Options struct {
	// Context bounds sends started from the screen.
	Context context.Context

	Conversation Conversation
	Save         SaveFunc

	Title         string
	Theme         string
	Markdown      bool
	Compact       bool
	ToastDuration time.Duration
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx   context.Context
	conv  Conversation
	save  SaveFunc
	title string

	theme    *styles.Theme
	markdown bool
	md       components.MarkdownRenderer
	compact  bool

	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	toasts   *components.ToastManager

	snap     chatsync.Snapshot
	haveSnap bool

	width  int
	height int
	ready  bool
	closed bool
}

// New creates the chat screen.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	title := opts.Title
	if title == "" {
		title = "companion"
	}

	input := textinput.New()
	input.Placeholder = "Say something..."
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := styles.NewTheme(opts.Theme)
	input.PromptStyle = theme.InputPrompt
	sp.Style = theme.Typing

	return Model{
		ctx:      ctx,
		conv:     opts.Conversation,
		save:     opts.Save,
		title:    title,
		theme:    theme,
		markdown: opts.Markdown,
		compact:  opts.Compact,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
		input:    input,
		spinner:  sp,
		toasts:   components.NewToastManager(opts.ToastDuration),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		components.ToastTickCmd(),
		m.snapshotCmd(),
	)
}

// Snapshot returns the snapshot currently on screen.
func (m Model) Snapshot() chatsync.Snapshot {
	return m.snap
}

// Toasts exposes the toast manager.
func (m Model) Toasts() *components.ToastManager {
	return m.toasts
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) snapshotCmd() tea.Cmd {
	conv := m.conv
	if conv == nil {
		return nil
	}
	return func() tea.Msg {
		return SnapshotMsg{Snapshot: conv.Snapshot()}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	ctx, conv := m.ctx, m.conv
	return func() tea.Msg {
		id, err := conv.Send(ctx, text)
		return sendResultMsg{id: id, err: err}
	}
}

func (m Model) resendCmd(id string) tea.Cmd {
	ctx, conv := m.ctx, m.conv
	return func() tea.Msg {
		newID, err := conv.Resend(ctx, id)
		return sendResultMsg{id: newID, err: err}
	}
}

// clearCmd runs off the event loop: Clear publishes a snapshot through the
// program, which would block inside Update.
func (m Model) clearCmd() tea.Cmd {
	conv := m.conv
	return func() tea.Msg {
		conv.Clear()
		return nil
	}
}

func (m Model) saveCmd() tea.Cmd {
	save, snap := m.save, m.snap
	return func() tea.Msg {
		id, err := save(snap)
		return saveResultMsg{id: id, err: err}
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

// chromeHeight is the header, typing line, input and help rows.
const chromeHeight = 4

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 1)
	m.input.Width = max(width-4, 10)
	m.help.Width = width
	m.ready = true

	if m.markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(max(width-10, 20)),
		)
		if err != nil {
			log.Warn().Err(err).Msg("MARKDOWN DISABLED")
			m.md = nil
		} else {
			m.md = r
		}
	}
	m.refresh()
}

// refresh re-renders the conversation, following the bottom if the user was there.
func (m *Model) refresh() {
	follow := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0
	m.viewport.SetContent(m.renderConversation())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderConversation() string {
	if len(m.snap.Messages) == 0 {
		return m.theme.Hint.Render("No messages yet. Say hello.")
	}
	opts := components.BubbleOptions{
		Width:    m.viewport.Width,
		Theme:    m.theme,
		Markdown: m.md,
		Compact:  m.compact,
	}
	parts := make([]string, 0, len(m.snap.Messages))
	for _, msg := range m.snap.Messages {
		parts = append(parts, components.RenderMessage(msg, opts))
	}
	return strings.Join(parts, "\n\n")
}
