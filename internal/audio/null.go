/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
)

// NullEngine plays nothing; playbacks finish after the buffer duration on
// the engine clock. It backs headless deployments and tests.
type NullEngine struct {
	clock  clock.Clock
	gain   *Ramp
	logger zerolog.Logger

	mu      sync.Mutex
	playing map[*nullPlayback]struct{}
	closed  bool
}

// NewNullEngine creates a silent engine.
func NewNullEngine(clk clock.Clock, logger zerolog.Logger) *NullEngine {
	return &NullEngine{
		clock:   clk,
		gain:    NewRamp(clk, 1.0),
		logger:  logger.With().Str("component", "null_output").Logger(),
		playing: make(map[*nullPlayback]struct{}),
	}
}

// Play schedules completion of each cue at its offset plus its duration.
func (e *NullEngine) Play(cues ...Cue) []Playback {
	pbs := make([]Playback, len(cues))

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, c := range cues {
		pb := &nullPlayback{engine: e, done: make(chan struct{})}
		pbs[i] = pb
		if e.closed {
			pb.finish()
			continue
		}
		e.playing[pb] = struct{}{}
		pb.setTimer(e.clock.AfterFunc(c.At+c.Buffer.Duration(), func() {
			e.release(pb)
			pb.finish()
		}))
		e.logger.Debug().
			Str("bus", c.Bus.String()).
			Dur("at", c.At).
			Dur("duration", c.Buffer.Duration()).
			Msg("play")
	}
	return pbs
}

// MusicGain returns the music bus gain.
func (e *NullEngine) MusicGain() Gain {
	return e.gain
}

// Active returns the number of unfinished playbacks.
func (e *NullEngine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.playing)
}

// Close stops every playback.
func (e *NullEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	pending := make([]*nullPlayback, 0, len(e.playing))
	for pb := range e.playing {
		pending = append(pending, pb)
	}
	e.playing = make(map[*nullPlayback]struct{})
	e.mu.Unlock()

	for _, pb := range pending {
		pb.stop()
	}
	return nil
}

func (e *NullEngine) release(pb *nullPlayback) {
	e.mu.Lock()
	delete(e.playing, pb)
	e.mu.Unlock()
}

type nullPlayback struct {
	engine *NullEngine
	once   sync.Once
	done   chan struct{}

	mu    sync.Mutex
	timer clock.Timer
}

func (p *nullPlayback) setTimer(t clock.Timer) {
	p.mu.Lock()
	p.timer = t
	p.mu.Unlock()
}

func (p *nullPlayback) Done() <-chan struct{} { return p.done }

func (p *nullPlayback) Stop() {
	p.engine.release(p)
	p.stop()
}

func (p *nullPlayback) stop() {
	p.mu.Lock()
	t := p.timer
	p.mu.Unlock()
	if t != nil {
		t.Stop()
	}
	p.finish()
}

func (p *nullPlayback) finish() {
	p.once.Do(func() { close(p.done) })
}
