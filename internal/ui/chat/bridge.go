// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/companion-tui/internal/chatsync"
	"github.com/jeranaias/companion-tui/internal/notify"
)

// Bridge forwards synchronizer callbacks into a running program. It exists
// before the program does, so the synchronizer and notification dispatcher
// can be built first; anything sent before Attach is dropped, and the screen
// pulls a fresh snapshot on start.
type Bridge struct {
	mu sync.RWMutex
	p  *tea.Program
}

var _ notify.Sink = (*Bridge)(nil)

// Attach connects the bridge to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.RLock()
	p := b.p
	b.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// OnChange is a chatsync OnChange callback.
func (b *Bridge) OnChange(snap chatsync.Snapshot) {
	b.send(SnapshotMsg{Snapshot: snap})
}

// Notify implements notify.Sink by showing a toast.
func (b *Bridge) Notify(kind notify.Kind, message string) error {
	b.send(NotifyMsg{Kind: kind, Message: message})
	return nil
}

// Closed reports the end of the connection loop.
func (b *Bridge) Closed(err error) {
	b.send(ClosedMsg{Err: err})
}

// Run shows the chat screen until the user quits or ctx is done. start is
// called once the program exists, typically to launch the connection loop.
func Run(ctx context.Context, opts Options, bridge *Bridge, start func()) error {
	if opts.Context == nil {
		opts.Context = ctx
	}
	p := tea.NewProgram(New(opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	bridge.Attach(p)
	if start != nil {
		start()
	}
	_, err := p.Run()
	bridge.Attach(nil)
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return nil
	}
	return err
}
