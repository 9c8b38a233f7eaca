/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
)

// SpeakerEngine mixes a music bus and a voice bus onto the system speaker.
type SpeakerEngine struct {
	sampleRate beep.SampleRate
	gain       *Ramp
	music      *bus
	voice      *bus
	logger     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewSpeakerEngine initializes the speaker and starts both buses.
func NewSpeakerEngine(sampleRate beep.SampleRate, bufferSize time.Duration, clk clock.Clock, logger zerolog.Logger) (*SpeakerEngine, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(bufferSize)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	gain := NewRamp(clk, 1.0)
	e := &SpeakerEngine{
		sampleRate: sampleRate,
		gain:       gain,
		music:      newBus(gain),
		voice:      newBus(nil),
		logger:     logger.With().Str("component", "speaker").Logger(),
	}
	speaker.Play(e.music, e.voice)

	e.logger.Info().
		Int("sample_rate", int(sampleRate)).
		Dur("buffer", bufferSize).
		Msg("speaker output started")
	return e, nil
}

// Play queues the cues on their buses within one speaker lock, resampling to
// the speaker rate if needed. A cue's offset is rendered as leading silence so
// it starts on the same sample timeline as the others.
func (e *SpeakerEngine) Play(cues ...Cue) []Playback {
	pbs := make([]Playback, len(cues))
	voices := make([]*voice, len(cues))

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()

	for i, c := range cues {
		v := &voice{done: make(chan struct{}), bus: c.Bus}
		pbs[i] = v
		if closed {
			v.finish()
			continue
		}
		clip, ok := c.Buffer.(*Clip)
		if !ok {
			e.logger.Warn().Str("type", fmt.Sprintf("%T", c.Buffer)).Msg("cannot play foreign buffer")
			v.finish()
			continue
		}
		v.streamer = cueStreamer(clip, e.sampleRate, c.At)
		voices[i] = v
	}

	speaker.Lock()
	for _, v := range voices {
		if v == nil {
			continue
		}
		if v.bus == BusVoice {
			e.voice.add(v)
		} else {
			e.music.add(v)
		}
	}
	speaker.Unlock()
	return pbs
}

func cueStreamer(clip *Clip, rate beep.SampleRate, at time.Duration) beep.Streamer {
	var s beep.Streamer = clip.Streamer()
	if r := clip.Format().SampleRate; r != rate {
		s = beep.Resample(4, r, rate, s)
	}
	if at > 0 {
		s = beep.Seq(beep.Silence(rate.N(at)), s)
	}
	return s
}

// MusicGain returns the music bus gain.
func (e *SpeakerEngine) MusicGain() Gain {
	return e.gain
}

// Close stops output and releases the device.
func (e *SpeakerEngine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	speaker.Lock()
	e.music.clear()
	e.voice.clear()
	speaker.Unlock()
	speaker.Clear()
	speaker.Close()
	return nil
}

// voice is one streamer on a bus.
type voice struct {
	streamer beep.Streamer
	bus      Bus
	stopped  atomic.Bool
	once     sync.Once
	done     chan struct{}
}

func (v *voice) Done() <-chan struct{} { return v.done }

func (v *voice) Stop() {
	v.stopped.Store(true)
	v.finish()
}

func (v *voice) finish() {
	v.once.Do(func() { close(v.done) })
}

// bus mixes its voices and never drains, so the speaker keeps pulling from it
// between segments. A non-nil gain is applied per chunk, interpolated from the
// previous chunk's value.
type bus struct {
	gain    Gain
	last    float64
	voices  []*voice
	scratch [][2]float64
}

func newBus(gain Gain) *bus {
	b := &bus{gain: gain, last: 1.0}
	if gain != nil {
		b.last = gain.Value()
	}
	return b
}

func (b *bus) add(v *voice) {
	b.voices = append(b.voices, v)
}

func (b *bus) clear() {
	for _, v := range b.voices {
		v.finish()
	}
	b.voices = nil
}

func (b *bus) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		samples[i] = [2]float64{}
	}
	if cap(b.scratch) < len(samples) {
		b.scratch = make([][2]float64, len(samples))
	}
	buf := b.scratch[:len(samples)]

	live := b.voices[:0]
	for _, v := range b.voices {
		if v.stopped.Load() {
			continue
		}
		n, ok := v.streamer.Stream(buf)
		for i := 0; i < n; i++ {
			samples[i][0] += buf[i][0]
			samples[i][1] += buf[i][1]
		}
		if !ok || n < len(samples) {
			v.finish()
			continue
		}
		live = append(live, v)
	}
	for i := len(live); i < len(b.voices); i++ {
		b.voices[i] = nil
	}
	b.voices = live

	if b.gain != nil {
		b.applyGain(samples)
	}
	return len(samples), true
}

func (b *bus) applyGain(samples [][2]float64) {
	to := b.gain.Value()
	from := b.last
	b.last = to
	if from == 1.0 && to == 1.0 {
		return
	}
	n := float64(len(samples))
	for i := range samples {
		g := from + (to-from)*float64(i)/n
		samples[i][0] *= g
		samples[i][1] *= g
	}
}

func (b *bus) Err() error {
	return nil
}
