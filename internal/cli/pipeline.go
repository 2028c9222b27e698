// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/companion-tui/internal/channel"
	"github.com/jeranaias/companion-tui/internal/chatsync"
	"github.com/jeranaias/companion-tui/internal/config"
	"github.com/jeranaias/companion-tui/internal/emotion"
	"github.com/jeranaias/companion-tui/internal/metrics"
	"github.com/jeranaias/companion-tui/internal/notify"
	"github.com/jeranaias/companion-tui/internal/server"
	"github.com/jeranaias/companion-tui/internal/storage"
)

// =============================================================================
// PIPELINE
// =============================================================================

// pipeline is one chat session's wiring: adapter, synchronizer, state stores,
// notification dispatcher and transcript store.
type pipeline struct {
	cfg *config.Config

	metrics     *metrics.Metrics
	states      *emotion.MemoryStore
	journal     *emotion.SQLiteStore
	notifier    *notify.Dispatcher
	sync        *chatsync.Synchronizer
	transcripts *storage.TranscriptStore
}

// buildPipeline wires a synchronizer whose notifications go to sink and whose
// snapshots go to onChange.
func buildPipeline(cfg *config.Config, sink notify.Sink, onChange func(chatsync.Snapshot)) (*pipeline, error) {
	p := &pipeline{
		cfg:     cfg,
		metrics: metrics.New(),
		states:  emotion.NewMemoryStore(cfg.State.HistoryLimit),
	}

	var states emotion.Store = p.states
	if cfg.State.Enabled && cfg.State.DBPath != "" {
		journal, err := emotion.OpenSQLite(cfg.State.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open state journal: %w", err)
		}
		p.journal = journal
		states = emotion.Tee{p.states, journal}
	}

	transcripts, err := storage.NewTranscriptStore(cfg.Transcripts.Dir)
	if err != nil {
		p.closeJournal()
		return nil, err
	}
	p.transcripts = transcripts

	adapter, err := channel.New(cfg.Server.Transport, channel.Options{
		URL:                  cfg.Server.URL,
		SendURL:              cfg.Server.SendURL,
		PingInterval:         cfg.Server.PingInterval(),
		WriteTimeout:         cfg.Server.WriteTimeout(),
		ReconnectDelay:       cfg.Server.ReconnectDelay(),
		MaxReconnectAttempts: cfg.Server.MaxReconnectAttempts,
	})
	if err != nil {
		p.closeJournal()
		return nil, err
	}

	p.notifier = notify.NewDispatcher(sink, notify.Options{
		QueueSize: cfg.Notify.QueueSize,
		Metrics:   p.metrics,
	})
	p.sync = chatsync.New(adapter, chatsync.Options{
		States:   states,
		Notifier: p.notifier,
		Metrics:  p.metrics,
		OnChange: onChange,
	})
	return p, nil
}

// run connects and blocks until ctx is done or the adapter gives up. A
// canceled context is a normal exit.
func (p *pipeline) run(ctx context.Context) error {
	err := p.sync.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// serveStatus runs the /health and /metrics listener when an address is
// configured. A listener failure is logged and does not end the session.
func (p *pipeline) serveStatus(ctx context.Context) error {
	if p.cfg.Metrics.Addr == "" {
		return nil
	}
	srv := server.New(server.Options{
		Addr:     p.cfg.Metrics.Addr,
		Version:  Version,
		Metrics:  p.metrics.Handler(),
		Snapshot: p.sync.Snapshot,
	})
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Str("addr", p.cfg.Metrics.Addr).Msg("STATUS SERVER FAILED")
	}
	return nil
}

// save writes snap as a transcript, attaching the latest emotional state.
func (p *pipeline) save(snap chatsync.Snapshot) (string, error) {
	t := storage.NewTranscript(p.cfg.Server.URL, snap.Messages)
	if st, ok, err := p.states.Latest(context.Background()); err == nil && ok {
		t.State = st.Payload
	}
	id, err := p.transcripts.Save(t)
	if err != nil {
		return "", err
	}
	log.Info().Str("id", id).Int("messages", len(t.Messages)).Msg("TRANSCRIPT SAVED")
	return id, nil
}

// autoSave saves the final conversation when enabled and non-empty.
func (p *pipeline) autoSave(enabled bool) (string, bool) {
	if !enabled {
		return "", false
	}
	snap := p.sync.Snapshot()
	if len(snap.Messages) == 0 {
		return "", false
	}
	id, err := p.save(snap)
	if err != nil {
		log.Error().Err(err).Msg("TRANSCRIPT AUTOSAVE FAILED")
		return "", false
	}
	return id, true
}

// Close stops the adapter, drains pending notifications and closes the journal.
func (p *pipeline) Close() {
	if err := p.sync.Close(); err != nil {
		log.Debug().Err(err).Msg("ADAPTER CLOSE")
	}
	p.notifier.Close()
	p.closeJournal()
}

func (p *pipeline) closeJournal() {
	if p.journal == nil {
		return
	}
	if err := p.journal.Close(); err != nil {
		log.Warn().Err(err).Msg("STATE JOURNAL CLOSE FAILED")
	}
	p.journal = nil
}

// watchConfig applies log level changes from the config file while running.
func watchConfig(ctx context.Context, path string, apply func(*config.Config)) func() {
	if path == "" {
		return func() {}
	}
	w, err := config.Watch(ctx, path, config.DefaultWatchDebounce, apply)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("CONFIG WATCH UNAVAILABLE")
		return func() {}
	}
	return func() { _ = w.Close() }
}

// toastDuration converts the configured toast lifetime.
func toastDuration(cfg *config.Config) time.Duration {
	return time.Duration(cfg.UI.ToastSeconds) * time.Second
}
