// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/zhai-tui/internal/config"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// SealedKeys are encrypted when a passphrase is configured.
var SealedKeys = []string{"authToken", "userInfo"}

// Open creates the Store described by cfg. When cfg.Passphrase is set the
// result is wrapped in Sealed.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var (
		store Store
		err   error
	)

	switch strings.ToLower(cfg.Backend) {
	case BackendFile, "":
		path, perr := defaultPath(cfg.Path, "session.json")
		if perr != nil {
			return nil, perr
		}
		store = NewFile(path)
	case BackendSQLite:
		path, perr := defaultPath(cfg.Path, "session.db")
		if perr != nil {
			return nil, perr
		}
		store, err = NewSQLite(ctx, path)
	case BackendRedis:
		store, err = NewRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case BackendMemory:
		store = NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Passphrase == "" {
		return store, nil
	}
	sealed, err := NewSealed(ctx, store, cfg.Passphrase, 0, SealedKeys...)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("enable encryption at rest: %w", err)
	}
	return sealed, nil
}

func defaultPath(path, name string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
