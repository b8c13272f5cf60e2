// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for zhai.
//
// Supports TOML and JSON configuration files, with defaults, a .env file,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: the complete configuration
//   - ServerConfig: backend URL, timeouts, stream charset, end-of-stream policy
//   - StorageConfig: where the session is persisted (file, sqlite, redis, memory)
//   - SessionConfig: login throttling
//   - UIConfig: front end selection and typewriter cadence
//   - FallbackConfig: what replies when the backend cannot
//   - LoggingConfig: log level and file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ZHAI_*, DEEPSEEK_*), including those from .env
//   - ~/.zhai/config.toml
//   - ~/.zhai/config.json
//   - Built-in defaults
//
// ZHAI_HOME moves the configuration directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.Server.TimeoutDuration()
//
// Watch hot-reloads the file and reports every reload to a callback:
//
//	go config.Watch(ctx, path, 0, func(c *config.Config, err error) {
//	    if err == nil {
//	        apply(c.UI)
//	    }
//	})
package config
