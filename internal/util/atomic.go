// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile replaces path with data. A reader sees either the previous
// file or the whole of data, never a prefix. Missing parent directories are
// created 0700 since they hold the saved session.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	steps := []func() error{
		func() error { _, werr := tmp.Write(data); return werr },
		tmp.Sync,
		tmp.Close, // the rename below fails on Windows while open
		func() error { return os.Chmod(tmp.Name(), perm) },
		func() error { return os.Rename(tmp.Name(), path) },
	}
	for _, step := range steps {
		if err = step(); err != nil {
			return fmt.Errorf("atomic write %s: %w", path, err)
		}
	}
	return nil
}
