/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus forwards station events from the in-process bus to a
// shared broker so other processes can follow what is on air.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/luizarrieira/radio-lrr-iv/internal/events"
)

// message is the envelope published to the broker.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string, now time.Time) ([]byte, error) {
	msg := message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: now.UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return data, nil
}

func unmarshalMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event message: %w", err)
	}
	return &msg, nil
}

// NodeID returns configured when set, otherwise hostname plus a random suffix.
func NodeID(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "radio"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
