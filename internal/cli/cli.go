// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/companion-tui/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// metadata key under which the loaded config travels between hooks and actions.
const configKey = "config"

// ErrNoConfig is returned when an action runs without the Before hook.
var ErrNoConfig = errors.New("configuration not loaded")

// NewApp builds the companion command line.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "companion",
		Usage:   "Terminal client for a conversational companion",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` instead of ~/.companion/config.toml",
				EnvVars: []string{"COMPANION_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` (repeatable, default .env)",
			},
		},
		Before: loadConfig,
		Commands: []*cli.Command{
			chatCommand(),
			configCommand(),
			transcriptsCommand(),
			versionCommand(),
		},
		DefaultCommand: "chat",
	}
}

// Run executes the app with os.Args and exits non-zero on failure.
func Run() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) error {
	if err := config.LoadDotEnv(c.StringSlice("env-file")...); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" && fileExists(path) {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	config.SetGlobal(cfg)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func configFrom(c *cli.Context) (*config.Config, error) {
	cfg, ok := c.App.Metadata[configKey].(*config.Config)
	if !ok || cfg == nil {
		return nil, ErrNoConfig
	}
	return cfg, nil
}

// configPath is the file config commands read and write.
func configPath(c *cli.Context) (string, error) {
	if path := c.String("config"); path != "" {
		return path, nil
	}
	return config.ActivePath()
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(c *cli.Context) error {
			printVersion(c.App.Writer)
			return nil
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "companion %s\n", Version)
	fmt.Fprintf(w, "  Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
