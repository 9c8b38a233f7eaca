/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FilesystemStore implements ObjectStore on a local directory. Keys are
// slash-separated paths relative to the root.
type FilesystemStore struct {
	rootDir string
	logger  zerolog.Logger
}

// NewFilesystemStore creates a filesystem-based store.
func NewFilesystemStore(rootDir string, logger zerolog.Logger) *FilesystemStore {
	return &FilesystemStore{
		rootDir: rootDir,
		logger:  logger.With().Str("component", "storage_fs").Logger(),
	}
}

// Get reads a file below the root.
func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.fullPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put writes a file below the root, creating parent directories.
func (s *FilesystemStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath := s.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename file: %w", err)
	}

	s.logger.Debug().Str("path", fullPath).Int("bytes", len(data)).Msg("filesystem storage: file stored")
	return nil
}

// CheckAccess verifies the storage directory exists and is accessible.
func (s *FilesystemStore) CheckAccess(ctx context.Context) error {
	info, err := os.Stat(s.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("media root directory does not exist: %s", s.rootDir)
		}
		return fmt.Errorf("cannot access media root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("media root is not a directory: %s", s.rootDir)
	}
	return nil
}

// fullPath confines key to the root directory.
func (s *FilesystemStore) fullPath(key string) string {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	return filepath.Join(s.rootDir, clean)
}
