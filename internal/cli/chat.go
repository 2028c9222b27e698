// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/companion-tui/internal/config"
	"github.com/jeranaias/companion-tui/internal/logging"
	"github.com/jeranaias/companion-tui/internal/notify"
	"github.com/jeranaias/companion-tui/internal/ui/chat"
	"github.com/jeranaias/companion-tui/internal/ui/styles"
)

// =============================================================================
// CHAT COMMAND
// =============================================================================

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start a conversation",
		Description: "Opens the full-screen chat when stdout is a terminal, and a line\n" +
			"REPL otherwise. In the REPL, /help lists the slash commands.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Companion server `URL` (overrides server.url)",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Use the line REPL even on a terminal",
			},
			&cli.BoolFlag{
				Name:  "no-markdown",
				Usage: "Show AI messages as plain text",
			},
		},
		Action: runChat,
	}
}

func runChat(c *cli.Context) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	cfg = cfg.Clone()
	if url := c.String("server"); url != "" {
		cfg.Server.URL = url
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if c.Bool("no-markdown") {
		cfg.UI.Markdown = false
	}

	tui := IsStdoutTTY() && IsTTY() && !c.Bool("plain")

	closer, err := setupLogging(cfg, tui)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, _ := configPath(c)
	stopWatch := watchConfig(ctx, path, func(next *config.Config) {
		if err := logging.SetLevel(next.Log.Level); err != nil {
			log.Warn().Err(err).Msg("LOG LEVEL NOT APPLIED")
		}
		config.SetGlobal(next)
	})
	defer stopWatch()

	log.Info().
		Str("server", cfg.Server.URL).
		Str("transport", cfg.Server.Transport).
		Bool("tui", tui).
		Msg("CHAT STARTED")

	if tui {
		return runTUI(ctx, cfg, c.App.Writer)
	}
	return runREPL(ctx, cfg, c.App.Writer)
}

// setupLogging keeps the alt screen clean: the TUI logs to a file.
func setupLogging(cfg *config.Config, tui bool) (io.Closer, error) {
	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}
	if tui && opts.File == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			logging.Discard()
			return io.NopCloser(nil), nil
		}
		opts.File = filepath.Join(dir, "companion.log")
	}
	return logging.Setup(opts)
}

// =============================================================================
// FRONTENDS
// =============================================================================

func runTUI(ctx context.Context, cfg *config.Config, out io.Writer) error {
	bridge := &chat.Bridge{}
	p, err := buildPipeline(cfg, bridge, bridge.OnChange)
	if err != nil {
		return err
	}
	defer p.Close()

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return p.serveStatus(gctx) })

	start := func() {
		g.Go(func() error {
			err := p.run(gctx)
			bridge.Closed(err)
			return err
		})
	}

	uiErr := chat.Run(ctx, chat.Options{
		Context:       runCtx,
		Conversation:  p.sync,
		Save:          p.save,
		Title:         "companion · " + cfg.Server.URL,
		Theme:         cfg.UI.Theme,
		Markdown:      cfg.UI.Markdown,
		Compact:       cfg.UI.CompactMode,
		ToastDuration: toastDuration(cfg),
	}, bridge, start)

	cancel()
	runErr := g.Wait()

	if id, ok := p.autoSave(config.Global().Transcripts.AutoSave); ok {
		fmt.Fprintln(out, styles.RenderSuccess("Saved transcript "+id))
	}
	if uiErr != nil {
		return uiErr
	}
	return runErr
}

func runREPL(ctx context.Context, cfg *config.Config, out io.Writer) error {
	printer := newPrinter(out)
	sink := notify.SinkFunc(printer.Notify)

	p, err := buildPipeline(cfg, sink, printer.Observe)
	if err != nil {
		return err
	}
	defer p.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return p.serveStatus(gctx) })
	g.Go(func() error {
		err := p.run(gctx)
		if err != nil {
			printer.Notify(notify.Error, "Connection closed: "+err.Error())
		}
		return err
	})

	input := newLineInput()
	defer input.Close()

	printer.Banner(cfg.Server.URL)
	r := &repl{
		ctx:     runCtx,
		conv:    p.sync,
		save:    p.save,
		printer: printer,
	}
	replErr := r.Loop(input)

	cancel()
	runErr := g.Wait()

	if id, ok := p.autoSave(config.Global().Transcripts.AutoSave); ok {
		printer.Line(styles.RenderSuccess("Saved transcript " + id))
	}
	if replErr != nil {
		return replErr
	}
	return runErr
}
