/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/storage"
)

type memStore struct {
	data map[string][]byte
	gets int
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.gets++
	d, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	m.data[key] = data
	return nil
}

func TestNewFallsBackWhenRedisUnreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	c, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New should not fail when Redis is down: %v", err)
	}
	if c.IsAvailable() {
		t.Fatal("expected cache to be disabled")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on disabled cache: %v", err)
	}
}

func TestDisabledStorePassesThrough(t *testing.T) {
	inner := &memStore{data: map[string][]byte{"a.wav": []byte("A")}}
	s := NewStore(inner, Disabled(zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		data, err := s.Get(ctx, "a.wav")
		if err != nil || string(data) != "A" {
			t.Fatalf("Get = %q, %v", data, err)
		}
	}
	if inner.gets != 2 {
		t.Fatalf("expected every read to reach the inner store, got %d", inner.gets)
	}

	if _, err := s.Get(ctx, "missing.wav"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound to propagate, got %v", err)
	}

	if err := s.Put(ctx, "b.wav", []byte("B")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if string(inner.data["b.wav"]) != "B" {
		t.Fatal("Put did not reach the inner store")
	}
}

func TestDisabledWeatherMisses(t *testing.T) {
	c := Disabled(zerolog.Nop())
	ctx := context.Background()
	if err := c.SetWeather(ctx, "Maringa,BR", CachedWeather{Condition: "Rain", ObservedAt: time.Now()}); err != nil {
		t.Fatalf("SetWeather on disabled cache: %v", err)
	}
	if _, ok := c.GetWeather(ctx, "Maringa,BR"); ok {
		t.Fatal("disabled cache should never hit")
	}
}

func TestHandleErrorTripsBreaker(t *testing.T) {
	c := &Cache{logger: zerolog.Nop(), config: DefaultConfig()}
	c.handleError(errors.New("connection reset"), "get")
	if !c.disabled {
		t.Fatal("expected breaker to open on Redis error")
	}

	c = &Cache{logger: zerolog.Nop(), config: Config{DisableOnError: false}}
	c.handleError(errors.New("connection reset"), "get")
	if c.disabled {
		t.Fatal("breaker should stay closed when DisableOnError is false")
	}
}
