/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audio provides decoding, buffering and output for station content.
package audio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnsupportedFormat is returned for content paths that are neither wav nor mp3.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("audio engine closed")
)

// Buffer is decoded audio held in memory.
type Buffer interface {
	Duration() time.Duration
}

// Loader fetches and decodes one content path.
type Loader interface {
	Load(ctx context.Context, path string) (Buffer, error)
}

// Bus selects the output group a buffer plays on. Only the music bus is
// affected by the gain.
type Bus int

const (
	BusMusic Bus = iota
	BusVoice
)

func (b Bus) String() string {
	if b == BusVoice {
		return "voice"
	}
	return "music"
}

// Playback is one buffer playing on a bus.
type Playback interface {
	// Done is closed when the buffer finishes or is stopped.
	Done() <-chan struct{}
	Stop()
}

// Gain is a scheduled volume control.
type Gain interface {
	// RampTo moves linearly from the current value to v over the given time.
	RampTo(v float64, over time.Duration)
	// CancelScheduled freezes the gain at its current value.
	CancelScheduled()
	Value() float64
}

// Cue is one buffer to start on a bus, At after the cues are queued.
type Cue struct {
	Buffer Buffer
	Bus    Bus
	At     time.Duration
}

// Player starts buffers and exposes the music bus gain.
type Player interface {
	// Play queues cues together, so their offsets share one timeline. The
	// playbacks are returned in cue order.
	Play(cues ...Cue) []Playback
	MusicGain() Gain
	Close() error
}
