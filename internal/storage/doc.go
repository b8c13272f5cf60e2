// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key/value persistence behind the zhai
// session.
//
// The session survives restarts only through this package. Values are
// opaque strings; the session package decides what goes in them.
//
// # Key Types
//
//   - Store: the key/value interface every backend implements
//   - Memory: process-local map, used by tests and --no-persist
//   - File: one JSON object on disk, written atomically with 0600
//   - SQLite: a single kv table in a WAL-mode database
//   - Redis: keys under a prefix in a redis database
//   - Sealed: wraps any Store and encrypts selected keys at rest
//
// # Usage
//
// Open the backend named in the configuration:
//
//	store, err := storage.Open(ctx, cfg.Storage)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Set(ctx, "authToken", token)
//	token, err := store.Get(ctx, "authToken") // ErrNotFound when absent
//
// # Storage Location
//
// The file and sqlite backends default to ~/.zhai/session.json and
// ~/.zhai/session.db.
package storage
