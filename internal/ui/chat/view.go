// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/companion-tui/internal/ui/components"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	toasts := m.toasts.View(m.width)
	body := m.viewport.View()
	if toasts != "" {
		// toasts take rows from the top of the conversation
		lines := strings.Split(body, "\n")
		drop := min(lipgloss.Height(toasts), len(lines))
		body = strings.Join(lines[drop:], "\n") + "\n" + toasts
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderTyping(),
		m.input.View(),
		m.help.View(m.keys),
	)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render(m.title)
	badge := components.QualityBadge(m.snap.Connection)
	if m.closed {
		badge += " " + m.theme.Hint.Render("(closed)")
	}
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(badge)-2, 1)
	return m.theme.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + badge)
}

func (m Model) renderTyping() string {
	if !m.snap.Composing {
		return ""
	}
	return m.spinner.View() + m.theme.Typing.Render(" Companion is typing...")
}
