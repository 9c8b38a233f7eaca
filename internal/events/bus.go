/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventNowPlaying EventType = "now_playing"
	EventCover      EventType = "cover"
	EventNarration  EventType = "narration"
	EventJobReady   EventType = "job.ready"
	EventStatus     EventType = "status"

	// Program switch lifecycle
	EventSwitchRequested EventType = "switch.requested"
	EventSwitchDeferred  EventType = "switch.deferred"
	EventSwitchCancelled EventType = "switch.cancelled"
	EventSwitchCommitted EventType = "switch.committed"

	EventStarved EventType = "station.starved"
)

// Types lists every event type the station publishes.
var Types = []EventType{
	EventNowPlaying,
	EventCover,
	EventNarration,
	EventJobReady,
	EventStatus,
	EventSwitchRequested,
	EventSwitchDeferred,
	EventSwitchCancelled,
	EventSwitchCommitted,
	EventStarved,
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Publisher is implemented by anything that accepts station events.
type Publisher interface {
	Publish(eventType EventType, payload Payload)
}

// Bus implements a simple in-process pubsub. Slow subscribers miss events
// rather than blocking the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. The payload gets a "type" key.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	if payload == nil {
		payload = Payload{}
	}
	if _, ok := payload["type"]; !ok {
		payload["type"] = string(eventType)
	}

	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	b.subs[eventType] = subs
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(EventType, Payload) {}
