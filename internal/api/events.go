/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/luizarrieira/radio-lrr-iv/internal/events"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
)

const pingInterval = 15 * time.Second

var defaultEventTypes = []events.EventType{
	events.EventNowPlaying,
	events.EventCover,
	events.EventNarration,
	events.EventSwitchCommitted,
}

type wireEvent struct {
	Type    events.EventType `json:"type"`
	Payload events.Payload   `json:"payload"`
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	// Reads are only needed to observe the client closing.
	ctx := conn.CloseRead(r.Context())

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = defaultEventTypes
	}

	merged := make(chan wireEvent, 32)
	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		sub := a.bus.Subscribe(eventType)
		subscribers = append(subscribers, sub)
		go relay(ctx, eventType, sub, merged)
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		case ev := <-merged:
			if err := writeEvent(ctx, conn, ev); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func relay(ctx context.Context, eventType events.EventType, sub events.Subscriber, out chan<- wireEvent) {
	for payload := range sub {
		select {
		case out <- wireEvent{Type: eventType, Payload: payload}:
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(ctx context.Context, conn *ws.Conn, ev wireEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, data)
}

// parseEventTypes reads a comma separated list, keeping known types only.
func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	known := make(map[events.EventType]bool, len(events.Types))
	for _, t := range events.Types {
		known[t] = true
	}

	var out []events.EventType
	seen := make(map[events.EventType]bool)
	for _, part := range strings.Split(raw, ",") {
		t := events.EventType(strings.TrimSpace(part))
		if known[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
