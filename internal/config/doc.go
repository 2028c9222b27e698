// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// the companion client.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, validation, and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Server URL, transport and reconnect policy
//   - StateConfig: Emotional state journal settings
//   - Watcher: Reloads the config file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (COMPANION_*), including those from .env
//   - ~/.companion/config.toml
//   - ~/.companion/config.json
//   - Built-in defaults
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	interval := cfg.Server.PingInterval()
package config
