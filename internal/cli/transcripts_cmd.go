// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/jeranaias/companion-tui/internal/export"
	"github.com/jeranaias/companion-tui/internal/storage"
	"github.com/jeranaias/companion-tui/internal/ui/styles"
)

func transcriptsCommand() *cli.Command {
	jsonFlag := &cli.BoolFlag{Name: "json", Usage: "Print JSON instead of text"}
	return &cli.Command{
		Name:    "transcripts",
		Aliases: []string{"t"},
		Usage:   "Browse saved conversations",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved transcripts, newest first",
				Flags:  []cli.Flag{jsonFlag},
				Action: runTranscriptsList,
			},
			{
				Name:      "show",
				Usage:     "Print one transcript",
				ArgsUsage: "ID|INDEX",
				Flags:     []cli.Flag{jsonFlag},
				Action:    runTranscriptsShow,
			},
			{
				Name:      "export",
				Usage:     "Write one transcript as Markdown, JSON or HTML",
				ArgsUsage: "ID|INDEX",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "markdown", Usage: "Output `FORMAT`: " + strings.Join(export.Formats, ", ")},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "Write into `DIR`, or - for standard output"},
					&cli.StringFlag{Name: "theme", Value: "dark", Usage: "HTML theme, light or dark"},
					&cli.BoolFlag{Name: "no-metadata", Usage: "Omit the header and per-message details"},
					&cli.BoolFlag{Name: "no-timestamps", Usage: "Omit per-message times"},
				},
				Action: runTranscriptsExport,
			},
			{
				Name:      "delete",
				Usage:     "Delete one transcript",
				ArgsUsage: "ID|INDEX",
				Action:    runTranscriptsDelete,
			},
		},
	}
}

func transcriptStore(c *cli.Context) (*storage.TranscriptStore, error) {
	cfg, err := configFrom(c)
	if err != nil {
		return nil, err
	}
	return storage.NewTranscriptStore(cfg.Transcripts.Dir)
}

func runTranscriptsList(c *cli.Context) error {
	store, err := transcriptStore(c)
	if err != nil {
		return err
	}
	metas, err := store.List()
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c, metas)
	}
	fmt.Fprint(c.App.Writer, storage.FormatList(metas))
	if len(metas) == 0 {
		fmt.Fprintln(c.App.Writer)
	}
	return nil
}

func runTranscriptsShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: companion transcripts show ID|INDEX")
	}
	store, err := transcriptStore(c)
	if err != nil {
		return err
	}
	t, err := store.Resolve(c.Args().First())
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c, t)
	}

	md := t.Markdown()
	if !IsStdoutTTY() {
		fmt.Fprintln(c.App.Writer, md)
		return nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		fmt.Fprintln(c.App.Writer, md)
		return nil
	}
	rendered, err := r.Render(md)
	if err != nil {
		fmt.Fprintln(c.App.Writer, md)
		return nil
	}
	fmt.Fprint(c.App.Writer, rendered)
	return nil
}

func runTranscriptsExport(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: companion transcripts export ID|INDEX")
	}
	store, err := transcriptStore(c)
	if err != nil {
		return err
	}
	t, err := store.Resolve(c.Args().First())
	if err != nil {
		return err
	}

	opts := &export.Options{
		OutputDir:         c.String("out"),
		IncludeMetadata:   !c.Bool("no-metadata"),
		IncludeTimestamps: !c.Bool("no-timestamps"),
		Theme:             c.String("theme"),
	}
	exp, err := export.ForFormat(c.String("format"), opts)
	if err != nil {
		return err
	}

	if opts.OutputDir == "-" {
		data, err := exp.Export(t)
		if err != nil {
			return err
		}
		_, err = c.App.Writer.Write(data)
		return err
	}

	path, err := export.ExportToFile(t, exp, opts)
	if err != nil {
		return err
	}
	log.Info().Str("id", t.ID).Str("path", path).Msg("TRANSCRIPT EXPORTED")
	fmt.Fprintln(c.App.Writer, styles.RenderSuccess("Exported "+path))
	return nil
}

func runTranscriptsDelete(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: companion transcripts delete ID|INDEX")
	}
	store, err := transcriptStore(c)
	if err != nil {
		return err
	}
	t, err := store.Resolve(c.Args().First())
	if err != nil {
		return err
	}
	if err := store.Delete(t.ID); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, styles.RenderSuccess("Deleted "+t.ID))
	return nil
}

// printJSON writes v indented, highlighted on a terminal.
func printJSON(c *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	out := string(data)
	if IsStdoutTTY() {
		out = styles.Highlight(out, "json")
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}
