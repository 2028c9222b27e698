// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/companion-tui/internal/config"
	"github.com/jeranaias/companion-tui/internal/ui/styles"
)

// configCommand returns the config command.
func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or edit the configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration as JSON",
				Action: runConfigShow,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: runConfigPath,
			},
			{
				Name:      "get",
				Usage:     "Print one value",
				ArgsUsage: "KEY",
				Action:    runConfigGet,
			},
			{
				Name:      "set",
				Usage:     "Change one value and save the file",
				ArgsUsage: "KEY VALUE",
				Action:    runConfigSet,
			},
			{
				Name:   "keys",
				Usage:  "List every settable key",
				Action: runConfigKeys,
			},
		},
	}
}

func runConfigShow(c *cli.Context) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	out := cfg.String()
	if IsStdoutTTY() {
		out = styles.Highlight(out, "json")
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}

func runConfigPath(c *cli.Context) error {
	path, err := configPath(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, path)
	return nil
}

func runConfigGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: companion config get KEY")
	}
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	v, err := cfg.Get(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, v)
	return nil
}

func runConfigKeys(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, strings.Join(config.GetAllKeys(), "\n"))
	return nil
}

// runConfigSet edits the file itself, so environment overrides active in
// this process are not written back.
func runConfigSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: companion config set KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	path, err := configPath(c)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if fileExists(path) {
		if strings.HasSuffix(path, ".json") {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if strings.HasSuffix(path, ".json") {
		err = config.SaveJSON(cfg, path)
	} else {
		err = config.SaveTOML(cfg, path)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, styles.RenderSuccess(fmt.Sprintf("%s = %s", key, value)))
	return nil
}
