/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/events"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL     string
	Token   string
	Subject string // events go to "<Subject>.<event type>"
	Name    string

	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "radio.events",
		Name:          "radio-lrr-iv",
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSSink publishes event messages to NATS subjects.
type NATSSink struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSSink connects to NATS.
func NewNATSSink(cfg NATSConfig, logger zerolog.Logger) (*NATSSink, error) {
	logger = logger.With().Str("component", "eventbus").Str("backend", "nats").Logger()

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	logger.Info().Str("url", conn.ConnectedUrl()).Str("subject", cfg.Subject).Msg("NATS event sink connected")

	return &NATSSink{conn: conn, subject: cfg.Subject, logger: logger}, nil
}

// Send implements Sink.
func (s *NATSSink) Send(_ context.Context, eventType events.EventType, data []byte) error {
	if err := s.conn.Publish(natsSubject(s.subject, eventType), data); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (s *NATSSink) Close() error {
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

func natsSubject(prefix string, eventType events.EventType) string {
	return prefix + "." + string(eventType)
}
