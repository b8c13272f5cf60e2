// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/jeranaias/zhai-tui/internal/security"
)

// =============================================================================
// SEALED STORE
// =============================================================================

// SaltKey holds the base64 PBKDF2 salt of a Sealed store.
const SaltKey = "sealSalt"

// Sealed wraps a Store and encrypts the values of selected keys.
//
// Values stored before sealing was enabled are returned unchanged, so
// turning on a passphrase does not log the user out. A sealed value that
// fails to open is an error.
type Sealed struct {
	inner  Store
	sealer *security.Sealer
	keys   map[string]bool
}

// NewSealed loads or creates the salt in inner and derives the key from
// passphrase. Only the listed keys are encrypted.
func NewSealed(ctx context.Context, inner Store, passphrase string, iterations int, keys ...string) (*Sealed, error) {
	salt, err := loadSalt(ctx, inner)
	if err != nil {
		return nil, err
	}
	sealer, err := security.NewSealer(passphrase, salt, iterations)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return &Sealed{inner: inner, sealer: sealer, keys: set}, nil
}

func loadSalt(ctx context.Context, inner Store) ([]byte, error) {
	encoded, err := inner.Get(ctx, SaltKey)
	if err == nil {
		salt, decErr := base64.StdEncoding.DecodeString(encoded)
		if decErr == nil && len(salt) == security.SaltSize {
			return salt, nil
		}
		// An unusable salt cannot open anything; start over.
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load salt: %w", err)
	}

	salt, err := security.GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := inner.Set(ctx, SaltKey, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("store salt: %w", err)
	}
	return salt, nil
}

// Get returns the value for key, decrypted when key is sealed.
func (s *Sealed) Get(ctx context.Context, key string) (string, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !s.keys[key] || !security.IsSealed(v) {
		return v, nil
	}
	plain, err := s.sealer.Open(v)
	if err != nil {
		return "", fmt.Errorf("open %s: %w: %w", key, ErrCorrupt, err)
	}
	return plain, nil
}

// Set stores value under key, encrypted when key is sealed.
func (s *Sealed) Set(ctx context.Context, key, value string) error {
	if s.keys[key] {
		sealed, err := s.sealer.Seal(value)
		if err != nil {
			return err
		}
		value = sealed
	}
	return s.inner.Set(ctx, key, value)
}

// Delete removes keys from the inner store.
func (s *Sealed) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

// Close closes the inner store.
func (s *Sealed) Close() error {
	return s.inner.Close()
}
