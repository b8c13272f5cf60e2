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
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/zhai-tui/internal/stream"
	"github.com/jeranaias/zhai-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete zhai configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" json:"server"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	Session  SessionConfig  `toml:"session" json:"session"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Fallback FallbackConfig `toml:"fallback" json:"fallback"`
	Logging  LoggingConfig  `toml:"logging" json:"logging"`
}

// ServerConfig describes the assistant backend.
type ServerConfig struct {
	// BaseURL is the backend root, e.g. http://127.0.0.1:8000
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds a whole request, stream included
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// IdleTimeoutSecs bounds the silence between stream chunks
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
	// Charset of the chat stream as a WHATWG label
	Charset string `toml:"charset" json:"charset"`
	// EndOfStream is "sentinel" or "fail"
	EndOfStream string `toml:"end_of_stream" json:"end_of_stream"`
}

// StorageConfig selects the session persistence backend.
type StorageConfig struct {
	// Backend is one of: file, sqlite, redis, memory
	Backend string `toml:"backend" json:"backend"`
	// Path of the session file or sqlite database (default: in ConfigDir)
	Path string `toml:"path" json:"path"`
	// RedisAddr is host:port of the redis server
	RedisAddr string `toml:"redis_addr" json:"redis_addr"`
	// RedisPassword authenticates to redis
	RedisPassword string `toml:"redis_password" json:"redis_password,omitempty"`
	// RedisDB selects the redis logical database
	RedisDB int `toml:"redis_db" json:"redis_db"`
	// RedisPrefix namespaces the session keys
	RedisPrefix string `toml:"redis_prefix" json:"redis_prefix"`
	// Passphrase, when set, encrypts the persisted session at rest
	Passphrase string `toml:"passphrase" json:"passphrase,omitempty"`
}

// SessionConfig controls login behavior.
type SessionConfig struct {
	// LoginRatePerMinute is the sustained login attempt rate
	LoginRatePerMinute int `toml:"login_rate_per_minute" json:"login_rate_per_minute"`
	// LoginBurst is how many attempts may be made back to back
	LoginBurst int `toml:"login_burst" json:"login_burst"`
}

// UIConfig contains front end settings.
type UIConfig struct {
	// Mode is "tui" (full screen) or "repl" (line based)
	Mode string `toml:"mode" json:"mode"`
	// TypewriterIntervalMs is the delay between revealed characters
	TypewriterIntervalMs int `toml:"typewriter_interval_ms" json:"typewriter_interval_ms"`
	// Theme is "auto", "dark" or "light"
	Theme string `toml:"theme" json:"theme"`
	// WordWrap is the REPL wrap width; 0 means terminal width
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
}

// FallbackConfig selects the local reply used when the backend fails.
type FallbackConfig struct {
	// Mode is one of: apology, mock, openai, off
	Mode string `toml:"mode" json:"mode"`
	// Message overrides the apology text
	Message string `toml:"message" json:"message,omitempty"`
	// OpenAIBaseURL is the OpenAI-compatible endpoint for mode "openai"
	OpenAIBaseURL string `toml:"openai_base_url" json:"openai_base_url"`
	// OpenAIAPIKey authenticates to that endpoint
	OpenAIAPIKey string `toml:"openai_api_key" json:"openai_api_key,omitempty"`
	// OpenAIModel is the model name, e.g. deepseek-chat
	OpenAIModel string `toml:"openai_model" json:"openai_model"`
	// TimeoutSecs bounds one fallback completion
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level" json:"level"`
	// File receives logs; required to see logs while the TUI runs
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:         "http://127.0.0.1:8000",
			TimeoutSecs:     60,
			IdleTimeoutSecs: 30,
			Charset:         stream.DefaultCharset,
			EndOfStream:     "sentinel",
		},
		Storage: StorageConfig{
			Backend:     "file",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "zhai:",
		},
		Session: SessionConfig{
			LoginRatePerMinute: 10,
			LoginBurst:         3,
		},
		UI: UIConfig{
			Mode:                 "tui",
			TypewriterIntervalMs: 30,
			Theme:                "auto",
		},
		Fallback: FallbackConfig{
			Mode:          "apology",
			OpenAIBaseURL: "https://api.deepseek.com",
			OpenAIModel:   "deepseek-chat",
			TimeoutSecs:   30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// TimeoutDuration returns TimeoutSecs as a duration.
func (s ServerConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// IdleTimeoutDuration returns IdleTimeoutSecs as a duration.
func (s ServerConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeoutSecs) * time.Second
}

// TypewriterInterval returns TypewriterIntervalMs as a duration.
func (u UIConfig) TypewriterInterval() time.Duration {
	return time.Duration(u.TypewriterIntervalMs) * time.Millisecond
}

// TimeoutDuration returns TimeoutSecs as a duration.
func (f FallbackConfig) TimeoutDuration() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the zhai configuration directory: $ZHAI_HOME, or
// ~/.zhai.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ZHAI_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".zhai"), nil
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

// EnsureConfigDir ensures the config directory exists. It holds the
// persisted session, so it is private to the user.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600. It may hold
// the storage passphrase and API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads .env from the working directory, if present, without
// overriding variables that are already set.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load loads configuration from the config file, trying TOML first and
// then JSON, and falls back to defaults when neither exists. Environment
// overrides are applied last.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with env
// overrides, defaults and validation applied.
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
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills zero values that have a meaningful default.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = d.Server.TimeoutSecs
	}
	if c.Server.IdleTimeoutSecs == 0 {
		c.Server.IdleTimeoutSecs = d.Server.IdleTimeoutSecs
	}
	if c.Server.Charset == "" {
		c.Server.Charset = d.Server.Charset
	}
	if c.Server.EndOfStream == "" {
		c.Server.EndOfStream = d.Server.EndOfStream
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = d.Storage.RedisAddr
	}
	if c.Storage.RedisPrefix == "" {
		c.Storage.RedisPrefix = d.Storage.RedisPrefix
	}

	if c.Session.LoginRatePerMinute == 0 {
		c.Session.LoginRatePerMinute = d.Session.LoginRatePerMinute
	}
	if c.Session.LoginBurst == 0 {
		c.Session.LoginBurst = d.Session.LoginBurst
	}

	if c.UI.Mode == "" {
		c.UI.Mode = d.UI.Mode
	}
	if c.UI.TypewriterIntervalMs == 0 {
		c.UI.TypewriterIntervalMs = d.UI.TypewriterIntervalMs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}

	if c.Fallback.Mode == "" {
		c.Fallback.Mode = d.Fallback.Mode
	}
	if c.Fallback.OpenAIBaseURL == "" {
		c.Fallback.OpenAIBaseURL = d.Fallback.OpenAIBaseURL
	}
	if c.Fallback.OpenAIModel == "" {
		c.Fallback.OpenAIModel = d.Fallback.OpenAIModel
	}
	if c.Fallback.TimeoutSecs == 0 {
		c.Fallback.TimeoutSecs = d.Fallback.TimeoutSecs
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# zhai configuration file\n")
	b.WriteString("# Generated by zhai - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}

// Validate checks the configuration and returns ValidateErrors listing
// every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if u, err := url.Parse(c.Server.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("server.base_url", "invalid URL %q, must be http(s)://host[:port]", c.Server.BaseURL)
	}
	if c.Server.TimeoutSecs < 1 || c.Server.TimeoutSecs > 3600 {
		add("server.timeout_secs", "must be between 1 and 3600, got %d", c.Server.TimeoutSecs)
	}
	if c.Server.IdleTimeoutSecs < 1 || c.Server.IdleTimeoutSecs > c.Server.TimeoutSecs {
		add("server.idle_timeout_secs", "must be between 1 and timeout_secs (%d), got %d", c.Server.TimeoutSecs, c.Server.IdleTimeoutSecs)
	}
	if _, err := stream.LookupCharset(c.Server.Charset); err != nil {
		add("server.charset", "%v", err)
	}
	if !oneOf(c.Server.EndOfStream, "sentinel", "fail") {
		add("server.end_of_stream", "invalid policy %q, must be one of: sentinel, fail", c.Server.EndOfStream)
	}

	// Storage
	if !oneOf(c.Storage.Backend, "file", "sqlite", "redis", "memory") {
		add("storage.backend", "invalid backend %q, must be one of: file, sqlite, redis, memory", c.Storage.Backend)
	}
	if strings.EqualFold(c.Storage.Backend, "redis") && c.Storage.RedisAddr == "" {
		add("storage.redis_addr", "required for the redis backend")
	}
	if c.Storage.RedisDB < 0 {
		add("storage.redis_db", "must not be negative, got %d", c.Storage.RedisDB)
	}

	// Session
	if c.Session.LoginRatePerMinute < 1 {
		add("session.login_rate_per_minute", "must be at least 1, got %d", c.Session.LoginRatePerMinute)
	}
	if c.Session.LoginBurst < 1 {
		add("session.login_burst", "must be at least 1, got %d", c.Session.LoginBurst)
	}

	// UI
	if !oneOf(c.UI.Mode, "tui", "repl") {
		add("ui.mode", "invalid mode %q, must be one of: tui, repl", c.UI.Mode)
	}
	if c.UI.TypewriterIntervalMs < 1 || c.UI.TypewriterIntervalMs > 1000 {
		add("ui.typewriter_interval_ms", "must be between 1 and 1000, got %d", c.UI.TypewriterIntervalMs)
	}
	if !oneOf(c.UI.Theme, "auto", "dark", "light") {
		add("ui.theme", "invalid theme %q, must be one of: auto, dark, light", c.UI.Theme)
	}
	if c.UI.WordWrap < 0 {
		add("ui.word_wrap", "must not be negative, got %d", c.UI.WordWrap)
	}

	// Fallback
	if !oneOf(c.Fallback.Mode, "apology", "mock", "openai", "off") {
		add("fallback.mode", "invalid mode %q, must be one of: apology, mock, openai, off", c.Fallback.Mode)
	}
	if strings.EqualFold(c.Fallback.Mode, "openai") && c.Fallback.OpenAIAPIKey == "" {
		add("fallback.openai_api_key", "required for fallback mode openai (or set DEEPSEEK_API_KEY)")
	}
	if c.Fallback.TimeoutSecs < 1 {
		add("fallback.timeout_secs", "must be at least 1, got %d", c.Fallback.TimeoutSecs)
	}

	// Logging
	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		add("logging.level", "invalid level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func envBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// ApplyEnvOverrides applies environment variable overrides:
//   - ZHAI_BASE_URL: overrides server.base_url
//   - ZHAI_TIMEOUT: overrides server.timeout_secs
//   - ZHAI_STORAGE: overrides storage.backend
//   - ZHAI_STORE_PATH: overrides storage.path
//   - ZHAI_STORE_PASSPHRASE: overrides storage.passphrase
//   - ZHAI_REDIS_ADDR: overrides storage.redis_addr
//   - ZHAI_UI_MODE: overrides ui.mode
//   - ZHAI_FALLBACK: overrides fallback.mode
//   - ZHAI_STRICT: "1" or "true" sets fallback.mode to off
//   - ZHAI_LOG_LEVEL, ZHAI_LOG_FILE: override logging
//   - DEEPSEEK_API_KEY, DEEPSEEK_BASE_URL, DEEPSEEK_MODEL_NAME: override
//     the openai fallback, using the backend's own variable names
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ZHAI_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("ZHAI_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Server.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("ZHAI_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("ZHAI_STORE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("ZHAI_STORE_PASSPHRASE"); v != "" {
		c.Storage.Passphrase = v
	}
	if v := os.Getenv("ZHAI_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("ZHAI_UI_MODE"); v != "" {
		c.UI.Mode = v
	}
	if v := os.Getenv("ZHAI_FALLBACK"); v != "" {
		c.Fallback.Mode = v
	}
	if v := os.Getenv("ZHAI_STRICT"); v != "" && envBool(v) {
		c.Fallback.Mode = "off"
	}
	if v := os.Getenv("ZHAI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ZHAI_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		c.Fallback.OpenAIAPIKey = v
	}
	if v := os.Getenv("DEEPSEEK_BASE_URL"); v != "" {
		c.Fallback.OpenAIBaseURL = v
	}
	if v := os.Getenv("DEEPSEEK_MODEL_NAME"); v != "" {
		c.Fallback.OpenAIModel = v
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as JSON with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Storage.Passphrase != "" {
		safe.Storage.Passphrase = "[REDACTED]"
	}
	if safe.Storage.RedisPassword != "" {
		safe.Storage.RedisPassword = "[REDACTED]"
	}
	if safe.Fallback.OpenAIAPIKey != "" {
		safe.Fallback.OpenAIAPIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
