/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
	"github.com/luizarrieira/radio-lrr-iv/internal/events"
)

// ErrSinkUnavailable is returned while the circuit breaker is open.
var ErrSinkUnavailable = errors.New("event sink unavailable")

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string // events go to "<Channel>:<event type>"

	// Connection pooling
	PoolSize     int
	MinIdleConns int

	// Timeouts
	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures   int
	RetryInterval time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		Channel:       "radio:events",
		PoolSize:      4,
		MinIdleConns:  1,
		DialTimeout:   5 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
		RetryInterval: 30 * time.Second,
	}
}

// RedisSink publishes event messages on Redis pub/sub channels.
type RedisSink struct {
	client  *redis.Client
	channel string
	clock   clock.Clock
	logger  zerolog.Logger

	mu       sync.Mutex
	failures int
	maxFails int
	open     bool
	openedAt time.Time
	retry    time.Duration
}

// NewRedisSink creates a Redis event sink. An unreachable server starts
// the sink with its breaker open so the station keeps running.
func NewRedisSink(cfg RedisConfig, clk clock.Clock, logger zerolog.Logger) *RedisSink {
	if clk == nil {
		clk = clock.Real()
	}
	s := &RedisSink{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}),
		channel:  cfg.Channel,
		clock:    clk,
		logger:   logger.With().Str("component", "eventbus").Str("backend", "redis").Logger(),
		maxFails: cfg.MaxFailures,
		retry:    cfg.RetryInterval,
	}
	if s.maxFails <= 0 {
		s.maxFails = 1
	}
	pingTimeout := cfg.DialTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis event sink unreachable, events stay local")
		s.trip()
		return s
	}
	s.logger.Info().Str("addr", cfg.Addr).Str("channel", cfg.Channel).Msg("Redis event sink initialized")
	return s
}

// Send implements Sink.
func (s *RedisSink) Send(ctx context.Context, eventType events.EventType, data []byte) error {
	if !s.allow() {
		return ErrSinkUnavailable
	}
	if err := s.client.Publish(ctx, redisChannel(s.channel, eventType), data).Err(); err != nil {
		s.handleFailure(err)
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	s.mu.Lock()
	if s.open {
		s.logger.Info().Msg("Redis event sink recovered")
	}
	s.failures = 0
	s.open = false
	s.mu.Unlock()
	return nil
}

// Available reports whether the breaker is closed.
func (s *RedisSink) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.open
}

// Close closes the Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// allow reports whether a publish may be attempted. An open breaker lets
// one attempt through per retry interval.
func (s *RedisSink) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return true
	}
	if s.clock.Now().Sub(s.openedAt) < s.retry {
		return false
	}
	s.openedAt = s.clock.Now()
	return true
}

func (s *RedisSink) handleFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	if s.failures >= s.maxFails && !s.open {
		s.logger.Warn().
			Err(err).
			Int("fail_count", s.failures).
			Msg("Redis failure threshold reached, events stay local")
		s.open = true
		s.openedAt = s.clock.Now()
	}
}

func (s *RedisSink) trip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = s.maxFails
	s.open = true
	s.openedAt = s.clock.Now()
}

func redisChannel(prefix string, eventType events.EventType) string {
	return prefix + ":" + string(eventType)
}
