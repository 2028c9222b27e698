// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/companion-tui/internal/chatsync"
	"github.com/jeranaias/companion-tui/internal/ui/components"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		// stale snapshots can arrive after newer ones
		if m.haveSnap && msg.Snapshot.Version <= m.snap.Version {
			return m, nil
		}
		m.snap = msg.Snapshot
		m.haveSnap = true
		m.refresh()
		return m, nil

	case NotifyMsg:
		m.toasts.Add(components.KindForNotification(msg.Kind), msg.Message)
		return m, nil

	case sendResultMsg:
		m.handleSendResult(msg.err)
		return m, nil

	case saveResultMsg:
		if msg.err != nil {
			m.toasts.AddError("Save failed: " + msg.err.Error())
		} else {
			m.toasts.AddSuccess("Saved transcript " + msg.id)
		}
		return m, nil

	case ClosedMsg:
		m.closed = true
		if msg.Err != nil {
			m.toasts.AddError("Connection closed: " + msg.Err.Error())
		}
		return m, nil

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.conv == nil {
			return m, nil
		}
		m.input.Reset()
		return m, m.sendCmd(text)

	case key.Matches(msg, m.keys.Retry):
		if m.conv == nil {
			return m, nil
		}
		id, ok := m.conv.LastFailed()
		if !ok {
			m.toasts.AddInfo("Nothing to retry")
			return m, nil
		}
		return m, m.resendCmd(id)

	case key.Matches(msg, m.keys.Save):
		if m.save == nil {
			m.toasts.AddInfo("Saving is not available")
			return m, nil
		}
		return m, m.saveCmd()

	case key.Matches(msg, m.keys.Clear):
		if m.conv == nil {
			return m, nil
		}
		return m, m.clearCmd()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.DismissNewest()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSendResult surfaces failures the synchronizer did not already report.
// Transmit failures arrive as notifications, so they are not repeated here.
func (m *Model) handleSendResult(err error) {
	var te *chatsync.TransmitError
	switch {
	case err == nil, errors.As(err, &te):
	case errors.Is(err, chatsync.ErrNotConnected):
		m.toasts.AddError("Not connected, message not sent")
	case errors.Is(err, chatsync.ErrNotResendable):
		m.toasts.AddInfo("That message cannot be retried")
	default:
		m.toasts.AddError(err.Error())
	}
}
