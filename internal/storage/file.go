// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jeranaias/zhai-tui/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// File is a Store kept as one JSON object in a file.
//
// Every Set and Delete rewrites the whole file through
// util.AtomicWriteFile, so a crash never leaves a half written session.
// The file is created with 0600 permissions.
type File struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFile returns a File store at path. The file is created on first
// write.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// read loads the map. A missing file is an empty map; unparseable content
// is an error.
func (f *File) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	m := map[string]string{}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", f.path, ErrCorrupt, err)
	}
	return m, nil
}

func (f *File) write(m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(f.path, data, 0600)
}

// Get returns the value for key. A corrupt file is reported as an error.
func (f *File) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", ErrClosed
	}
	m, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key. A corrupt file is replaced.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	m, err := f.read()
	if err != nil {
		m = map[string]string{}
	}
	m[key] = value
	return f.write(m)
}

// Delete removes keys. A corrupt file is replaced by an empty one.
func (f *File) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	m, err := f.read()
	if err != nil {
		return f.write(map[string]string{})
	}
	changed := false
	for _, k := range keys {
		if _, ok := m[k]; ok {
			delete(m, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.write(m)
}

// Close marks the store closed.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
