/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
	"github.com/luizarrieira/radio-lrr-iv/internal/events"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
)

const sendTimeout = 2 * time.Second

// Sink delivers encoded event messages to a broker.
type Sink interface {
	Send(ctx context.Context, eventType events.EventType, data []byte) error
	Close() error
}

// Source is the local bus events are read from.
type Source interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
}

// Forwarder copies every local event type to a sink.
type Forwarder struct {
	source Source
	sink   Sink
	nodeID string
	clock  clock.Clock
	logger zerolog.Logger
}

// NewForwarder creates a forwarder.
func NewForwarder(source Source, sink Sink, nodeID string, clk clock.Clock, logger zerolog.Logger) *Forwarder {
	if clk == nil {
		clk = clock.Real()
	}
	return &Forwarder{
		source: source,
		sink:   sink,
		nodeID: nodeID,
		clock:  clk,
		logger: logger.With().Str("component", "eventbus").Str("node_id", nodeID).Logger(),
	}
}

// Run forwards events until ctx is cancelled, then closes the sink.
func (f *Forwarder) Run(ctx context.Context) error {
	subs := make(map[events.EventType]events.Subscriber, len(events.Types))
	for _, t := range events.Types {
		subs[t] = f.source.Subscribe(t)
	}

	var wg sync.WaitGroup
	for t, sub := range subs {
		wg.Add(1)
		go func(t events.EventType, sub events.Subscriber) {
			defer wg.Done()
			for payload := range sub {
				f.forward(ctx, t, payload)
			}
		}(t, sub)
	}
	f.logger.Info().Int("event_types", len(subs)).Msg("event forwarder started")

	<-ctx.Done()
	for t, sub := range subs {
		f.source.Unsubscribe(t, sub)
	}
	wg.Wait()

	if err := f.sink.Close(); err != nil {
		f.logger.Warn().Err(err).Msg("close event sink")
	}
	f.logger.Info().Msg("event forwarder stopped")
	return nil
}

func (f *Forwarder) forward(ctx context.Context, eventType events.EventType, payload events.Payload) {
	data, err := marshalMessage(eventType, payload, f.nodeID, f.clock.Now())
	if err != nil {
		f.logger.Error().Err(err).Msg("encode event")
		telemetry.EventsForwarded.WithLabelValues(string(eventType), "encode_error").Inc()
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()
	if err := f.sink.Send(sendCtx, eventType, data); err != nil {
		if errors.Is(err, ErrSinkUnavailable) {
			telemetry.EventsForwarded.WithLabelValues(string(eventType), "skipped").Inc()
			return
		}
		f.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("forward event failed")
		telemetry.EventsForwarded.WithLabelValues(string(eventType), "error").Inc()
		return
	}
	telemetry.EventsForwarded.WithLabelValues(string(eventType), "ok").Inc()
}
