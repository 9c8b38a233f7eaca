/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage fetches audio content and metadata bytes by content path.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/config"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ObjectStore abstracts object storage operations.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Checker is implemented by stores that can verify their backend is reachable.
type Checker interface {
	CheckAccess(ctx context.Context) error
}

// New creates the object store selected by config.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		s3cfg := S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    cfg.S3UsePathStyle,
		}
		if s3cfg.AccessKeyID == "" || s3cfg.SecretAccessKey == "" {
			logger.Warn().Msg("S3 credentials not configured, falling back to the default credential chain")
		}
		store, err := NewS3Store(ctx, s3cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return store, nil
	case config.StorageFilesystem, "":
		return NewFilesystemStore(cfg.MediaRoot, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
