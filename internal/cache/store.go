/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/storage"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
)

// Store is a read-through byte cache in front of an object store.
type Store struct {
	inner  storage.ObjectStore
	cache  *Cache
	logger zerolog.Logger
}

// NewStore wraps inner with the shared cache.
func NewStore(inner storage.ObjectStore, c *Cache, logger zerolog.Logger) *Store {
	return &Store{
		inner:  inner,
		cache:  c,
		logger: logger.With().Str("component", "object_cache").Logger(),
	}
}

// Get returns cached bytes when present, otherwise fetches and caches them.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.cache.getBytes(ctx, KeyObject+key); ok {
		telemetry.ObjectCacheRequests.WithLabelValues("hit").Inc()
		return data, nil
	}
	telemetry.ObjectCacheRequests.WithLabelValues("miss").Inc()

	data, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if limit := s.cache.config.MaxObjectBytes; limit <= 0 || len(data) <= limit {
		if err := s.cache.setBytes(ctx, KeyObject+key, data, s.cache.config.ObjectTTL); err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("failed to populate object cache")
		}
	}
	return data, nil
}

// Put writes through to the object store and drops any cached copy.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.inner.Put(ctx, key, data); err != nil {
		return err
	}
	if err := s.cache.delete(ctx, KeyObject+key); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("failed to invalidate object cache")
	}
	return nil
}
