// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/companion-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete client configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Server connection
	Server ServerConfig `toml:"server" json:"server"`

	// Notification queue
	Notify NotifyConfig `toml:"notify" json:"notify"`

	// Emotional state journal
	State StateConfig `toml:"state" json:"state"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Saved conversations
	Transcripts TranscriptsConfig `toml:"transcripts" json:"transcripts"`

	// Prometheus endpoint
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
}

// ServerConfig describes how to reach the companion server.
type ServerConfig struct {
	// URL is the event stream endpoint (ws:// for websocket, http:// for sse)
	URL string `toml:"url" json:"url"`
	// SendURL receives outbound messages for the sse transport; defaults to URL
	SendURL string `toml:"send_url" json:"send_url,omitempty"`
	// Transport is "websocket" or "sse"
	Transport string `toml:"transport" json:"transport"`
	// PingIntervalSecs is how often latency is probed
	PingIntervalSecs int `toml:"ping_interval_secs" json:"ping_interval_secs"`
	// WriteTimeoutSecs bounds a single send
	WriteTimeoutSecs int `toml:"write_timeout_secs" json:"write_timeout_secs"`
	// ReconnectDelayMs is the minimum spacing between dials
	ReconnectDelayMs int `toml:"reconnect_delay_ms" json:"reconnect_delay_ms"`
	// MaxReconnectAttempts gives up after this many failed dials in a row (0 = never)
	MaxReconnectAttempts int `toml:"max_reconnect_attempts" json:"max_reconnect_attempts"`
}

// PingInterval returns PingIntervalSecs as a duration.
func (s ServerConfig) PingInterval() time.Duration {
	return time.Duration(s.PingIntervalSecs) * time.Second
}

// WriteTimeout returns WriteTimeoutSecs as a duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSecs) * time.Second
}

// ReconnectDelay returns ReconnectDelayMs as a duration.
func (s ServerConfig) ReconnectDelay() time.Duration {
	return time.Duration(s.ReconnectDelayMs) * time.Millisecond
}

// NotifyConfig sizes the notification queue.
type NotifyConfig struct {
	QueueSize int `toml:"queue_size" json:"queue_size"`
}

// StateConfig controls the emotional state journal.
type StateConfig struct {
	// Enabled journals every state update to SQLite
	Enabled bool `toml:"enabled" json:"enabled"`
	// DBPath is the journal location; defaults to ~/.companion/state.db
	DBPath string `toml:"db_path" json:"db_path"`
	// HistoryLimit is how many updates are kept in memory
	HistoryLimit int `toml:"history_limit" json:"history_limit"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is trace, debug, info, warn or error
	Level string `toml:"level" json:"level"`
	// Format is console or json; empty picks console on a terminal
	Format string `toml:"format" json:"format"`
	// File receives logs; the TUI defaults to ~/.companion/companion.log
	File string `toml:"file" json:"file"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders companion replies as markdown
	Markdown bool `toml:"markdown" json:"markdown"`
	// ToastSeconds is how long info notifications stay visible
	ToastSeconds int `toml:"toast_seconds" json:"toast_seconds"`
	// CompactMode hides timestamps and metadata lines
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// TranscriptsConfig controls saved conversations.
type TranscriptsConfig struct {
	// Dir holds transcript files; defaults to ~/.companion/transcripts
	Dir string `toml:"dir" json:"dir"`
	// AutoSave writes the conversation on exit
	AutoSave bool `toml:"auto_save" json:"auto_save"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the listener
	Addr string `toml:"addr" json:"addr"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			URL:                  "ws://localhost:8787/ws",
			Transport:            "websocket",
			PingIntervalSecs:     10,
			WriteTimeoutSecs:     5,
			ReconnectDelayMs:     3000,
			MaxReconnectAttempts: 0,
		},

		Notify: NotifyConfig{
			QueueSize: 64,
		},

		State: StateConfig{
			Enabled:      true,
			HistoryLimit: 50,
		},

		Log: LogConfig{
			Level: "info",
		},

		UI: UIConfig{
			Theme:        "auto",
			Markdown:     true,
			ToastSeconds: 4,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the companion configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".companion"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ActivePath returns the file Load would read, or the TOML path if neither exists.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=value pairs from the given files (default ".env") into
// the environment. Variables already set are kept. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ActivePath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
// Values the file leaves out keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Server
	if cfg.Server.URL == "" {
		cfg.Server.URL = defaults.Server.URL
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = defaults.Server.Transport
	}
	if cfg.Server.PingIntervalSecs == 0 {
		cfg.Server.PingIntervalSecs = defaults.Server.PingIntervalSecs
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = defaults.Server.WriteTimeoutSecs
	}
	if cfg.Server.ReconnectDelayMs == 0 {
		cfg.Server.ReconnectDelayMs = defaults.Server.ReconnectDelayMs
	}

	// Notify
	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = defaults.Notify.QueueSize
	}

	// State
	if cfg.State.HistoryLimit == 0 {
		cfg.State.HistoryLimit = defaults.State.HistoryLimit
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.ToastSeconds == 0 {
		cfg.UI.ToastSeconds = defaults.UI.ToastSeconds
	}

	// Paths under the config directory
	if cfg.State.DBPath == "" || cfg.Transcripts.Dir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return err
		}
		if cfg.State.DBPath == "" {
			cfg.State.DBPath = filepath.Join(dir, "state.db")
		}
		if cfg.Transcripts.Dir == "" {
			cfg.Transcripts.Dir = filepath.Join(dir, "transcripts")
		}
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# companion configuration file\n")
	buf.WriteString("# Generated by companion - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// ==========================================================================
	// Server
	// ==========================================================================

	transport := strings.ToLower(c.Server.Transport)
	validTransports := map[string]bool{"websocket": true, "sse": true}
	if !validTransports[transport] {
		errs = append(errs, ValidationError{
			Field:   "server.transport",
			Message: fmt.Sprintf("invalid transport '%s', must be one of: websocket, sse", c.Server.Transport),
		})
	}

	if u, err := url.Parse(c.Server.URL); err != nil || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Server.URL),
		})
	} else {
		wantSchemes := map[string][]string{
			"websocket": {"ws", "wss"},
			"sse":       {"http", "https"},
		}[transport]
		if len(wantSchemes) > 0 && !containsString(wantSchemes, u.Scheme) {
			errs = append(errs, ValidationError{
				Field:   "server.url",
				Message: fmt.Sprintf("scheme '%s' does not match transport %s (want %s)", u.Scheme, transport, strings.Join(wantSchemes, " or ")),
			})
		}
	}

	if c.Server.SendURL != "" {
		if u, err := url.Parse(c.Server.SendURL); err != nil || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "server.send_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Server.SendURL),
			})
		}
	}

	if c.Server.PingIntervalSecs < 1 || c.Server.PingIntervalSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "server.ping_interval_secs",
			Message: fmt.Sprintf("must be between 1 and 300, got %d", c.Server.PingIntervalSecs),
		})
	}
	if c.Server.WriteTimeoutSecs < 1 || c.Server.WriteTimeoutSecs > 120 {
		errs = append(errs, ValidationError{
			Field:   "server.write_timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 120, got %d", c.Server.WriteTimeoutSecs),
		})
	}
	if c.Server.ReconnectDelayMs < 10 {
		errs = append(errs, ValidationError{
			Field:   "server.reconnect_delay_ms",
			Message: fmt.Sprintf("must be at least 10, got %d", c.Server.ReconnectDelayMs),
		})
	}
	if c.Server.MaxReconnectAttempts < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.max_reconnect_attempts",
			Message: "cannot be negative",
		})
	}

	// ==========================================================================
	// Notify / State
	// ==========================================================================

	if c.Notify.QueueSize < 1 || c.Notify.QueueSize > 10000 {
		errs = append(errs, ValidationError{
			Field:   "notify.queue_size",
			Message: fmt.Sprintf("must be between 1 and 10000, got %d", c.Notify.QueueSize),
		})
	}
	if c.State.HistoryLimit < 1 {
		errs = append(errs, ValidationError{
			Field:   "state.history_limit",
			Message: fmt.Sprintf("must be positive, got %d", c.State.HistoryLimit),
		})
	}

	// ==========================================================================
	// Log / UI
	// ==========================================================================

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error", c.Log.Level),
		})
	}
	if c.Log.Format != "" && c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be console or json", c.Log.Format),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.ToastSeconds < 1 || c.UI.ToastSeconds > 60 {
		errs = append(errs, ValidationError{
			Field:   "ui.toast_seconds",
			Message: fmt.Sprintf("must be between 1 and 60, got %d", c.UI.ToastSeconds),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
// Supported environment variables:
//   - COMPANION_SERVER_URL: overrides server.url
//   - COMPANION_TRANSPORT: overrides server.transport
//   - COMPANION_LOG_LEVEL: overrides log.level
//   - COMPANION_METRICS_ADDR: overrides metrics.addr
//   - COMPANION_STATE_DB: overrides state.db_path
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("COMPANION_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("COMPANION_TRANSPORT"); v != "" {
		c.Server.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("COMPANION_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("COMPANION_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("COMPANION_STATE_DB"); v != "" {
		c.State.DBPath = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"server.url",
		"server.send_url",
		"server.transport",
		"server.ping_interval_secs",
		"server.write_timeout_secs",
		"server.reconnect_delay_ms",
		"server.max_reconnect_attempts",
		"notify.queue_size",
		"state.enabled",
		"state.db_path",
		"state.history_limit",
		"log.level",
		"log.format",
		"log.file",
		"ui.theme",
		"ui.markdown",
		"ui.toast_seconds",
		"ui.compact_mode",
		"transcripts.dir",
		"transcripts.auto_save",
		"metrics.addr",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as indented JSON for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			_ = fillDefaults(cfg)
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
