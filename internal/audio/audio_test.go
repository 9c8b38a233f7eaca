/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
	"github.com/luizarrieira/radio-lrr-iv/internal/storage"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// constant streams n samples of value v.
type constant struct {
	v    float64
	left int
}

func (c *constant) Stream(samples [][2]float64) (int, bool) {
	if c.left <= 0 {
		return 0, false
	}
	n := min(len(samples), c.left)
	for i := range samples[:n] {
		samples[i] = [2]float64{c.v, c.v}
	}
	c.left -= n
	return n, true
}

func (c *constant) Err() error { return nil }

// newTestClip buffers 16-bit samples, so levels asserted on after decoding
// must be multiples of 1/32768.
func newTestClip(rate beep.SampleRate, v float64, samples int) *Clip {
	buf := beep.NewBuffer(beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2})
	buf.Append(&constant{v: v, left: samples})
	return NewClip(buf)
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRamp(t *testing.T) {
	clk := clock.NewFake(epoch)
	r := NewRamp(clk, 1.0)

	r.RampTo(0.5, 100*time.Millisecond)
	if v := r.Value(); !almost(v, 1.0) {
		t.Fatalf("value at ramp start = %v", v)
	}
	clk.Advance(50 * time.Millisecond)
	if v := r.Value(); !almost(v, 0.75) {
		t.Fatalf("value halfway = %v, want 0.75", v)
	}

	// New ramps start from the current value.
	r.RampTo(1.0, 100*time.Millisecond)
	clk.Advance(50 * time.Millisecond)
	if v := r.Value(); !almost(v, 0.875) {
		t.Fatalf("value after reversed ramp = %v, want 0.875", v)
	}

	r.CancelScheduled()
	clk.Advance(time.Second)
	if v := r.Value(); !almost(v, 0.875) {
		t.Fatalf("cancelled ramp kept moving: %v", v)
	}
	if r.Target() != r.Value() {
		t.Fatalf("target %v differs from frozen value %v", r.Target(), r.Value())
	}
}

func TestRampImmediate(t *testing.T) {
	r := NewRamp(clock.NewFake(epoch), 1.0)
	r.RampTo(0.2, 0)
	if v := r.Value(); !almost(v, 0.2) {
		t.Fatalf("zero-length ramp = %v", v)
	}
}

type memStore map[string][]byte

func (m memStore) Get(_ context.Context, key string) ([]byte, error) {
	d, ok := m[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func (m memStore) Put(_ context.Context, key string, data []byte) error {
	m[key] = data
	return nil
}

func encodeWav(t *testing.T, rate beep.SampleRate, samples int) []byte {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, &constant{v: 0.25, left: samples}, format); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestStoreLoader(t *testing.T) {
	store := memStore{
		"musicas/ONE.wav": encodeWav(t, 22050, 22050*2),
		"capas/one.jpg":   []byte("jpeg"),
		"broken.wav":      []byte("RIFF"),
	}
	l := NewStoreLoader(store, zerolog.Nop())
	ctx := context.Background()

	buf, err := l.Load(ctx, "musicas/ONE.wav")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if buf.Duration() != 2*time.Second {
		t.Fatalf("duration = %v, want 2s", buf.Duration())
	}
	if clip := buf.(*Clip); clip.Format().SampleRate != 22050 {
		t.Fatalf("sample rate = %d", clip.Format().SampleRate)
	}

	tests := []struct {
		path string
		want error
	}{
		{"missing.wav", storage.ErrNotFound},
		{"capas/one.jpg", ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if _, err := l.Load(ctx, tt.path); !errors.Is(err, tt.want) {
				t.Fatalf("Load(%s) = %v, want %v", tt.path, err, tt.want)
			}
		})
	}

	if _, err := l.Load(ctx, "broken.wav"); err == nil {
		t.Fatal("expected decode error for truncated wav")
	}
}

func TestNullEngine(t *testing.T) {
	clk := clock.NewFake(epoch)
	e := NewNullEngine(clk, zerolog.Nop())
	clip := newTestClip(1000, 0.1, 500)

	pb := e.Play(Cue{Buffer: clip, Bus: BusMusic})[0]
	if e.Active() != 1 {
		t.Fatalf("active = %d", e.Active())
	}
	clk.Advance(499 * time.Millisecond)
	select {
	case <-pb.Done():
		t.Fatal("finished early")
	default:
	}
	clk.Advance(time.Millisecond)
	select {
	case <-pb.Done():
	default:
		t.Fatal("not finished after its duration")
	}
	if e.Active() != 0 {
		t.Fatalf("active after finish = %d", e.Active())
	}

	stopped := e.Play(Cue{Buffer: clip, Bus: BusVoice})[0]
	stopped.Stop()
	stopped.Stop()
	<-stopped.Done()
	if clk.Pending() != 0 {
		t.Fatalf("stop left %d timers", clk.Pending())
	}

	_ = e.Close()
	<-e.Play(Cue{Buffer: clip, Bus: BusMusic})[0].Done()
}

func TestNullEngineCueOffsets(t *testing.T) {
	clk := clock.NewFake(epoch)
	e := NewNullEngine(clk, zerolog.Nop())
	track := newTestClip(1000, 0.25, 10000)
	voiceClip := newTestClip(1000, 0.25, 1500)

	pbs := e.Play(
		Cue{Buffer: track, Bus: BusMusic},
		Cue{Buffer: voiceClip, Bus: BusVoice, At: 1500 * time.Millisecond},
	)
	if len(pbs) != 2 || e.Active() != 2 {
		t.Fatalf("expected two queued playbacks, got %d (active %d)", len(pbs), e.Active())
	}

	clk.Advance(2999 * time.Millisecond)
	select {
	case <-pbs[1].Done():
		t.Fatal("offset cue finished before offset plus duration")
	default:
	}
	clk.Advance(time.Millisecond)
	select {
	case <-pbs[1].Done():
	default:
		t.Fatal("offset cue not finished at offset plus duration")
	}
	if e.Active() != 1 {
		t.Fatalf("active = %d, want the track only", e.Active())
	}
}

func TestCueStreamerDelaysStart(t *testing.T) {
	clip := newTestClip(1000, 0.25, 4)

	tests := []struct {
		name   string
		at     time.Duration
		silent int
	}{
		{"immediate", 0, 0},
		{"delayed", 3 * time.Millisecond, 3},
		{"spans chunks", 10 * time.Millisecond, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cueStreamer(clip, 1000, tt.at)
			var got [][2]float64
			chunk := make([][2]float64, 4)
			for {
				n, ok := s.Stream(chunk)
				got = append(got, chunk[:n]...)
				if !ok || n < len(chunk) {
					break
				}
			}
			if len(got) != tt.silent+4 {
				t.Fatalf("streamed %d samples, want %d", len(got), tt.silent+4)
			}
			for i, smp := range got {
				want := 0.25
				if i < tt.silent {
					want = 0
				}
				if smp[0] != want || smp[1] != want {
					t.Fatalf("sample %d = %v, want %v", i, smp, want)
				}
			}
		})
	}
}

func TestBusMixesAndAppliesGain(t *testing.T) {
	clk := clock.NewFake(epoch)
	gain := NewRamp(clk, 0.5)
	b := newBus(gain)

	a := &voice{streamer: newTestClip(1000, 0.25, 10).Streamer(), done: make(chan struct{})}
	c := &voice{streamer: newTestClip(1000, 0.5, 4).Streamer(), done: make(chan struct{})}
	b.add(a)
	b.add(c)

	samples := make([][2]float64, 4)
	n, ok := b.Stream(samples)
	if n != 4 || !ok {
		t.Fatalf("Stream = %d, %v", n, ok)
	}
	for i, s := range samples {
		if !almost(s[0], 0.375) || !almost(s[1], 0.375) {
			t.Fatalf("sample %d = %v, want 0.375", i, s)
		}
	}

	samples = make([][2]float64, 8)
	b.Stream(samples)
	select {
	case <-c.Done():
	default:
		t.Fatal("drained voice not finished")
	}
	if !almost(samples[0][0], 0.125) {
		t.Fatalf("remaining voice sample = %v, want 0.125", samples[0][0])
	}
	select {
	case <-a.Done():
	default:
		t.Fatal("voice shorter than the chunk should finish")
	}

	n, ok = b.Stream(samples)
	if n != len(samples) || !ok {
		t.Fatal("bus must keep streaming silence")
	}
	for _, s := range samples {
		if s != [2]float64{} {
			t.Fatalf("expected silence, got %v", s)
		}
	}
}

func TestBusSkipsStoppedVoices(t *testing.T) {
	b := newBus(nil)
	v := &voice{streamer: newTestClip(1000, 0.2, 100).Streamer(), done: make(chan struct{})}
	b.add(v)
	v.Stop()

	samples := make([][2]float64, 4)
	b.Stream(samples)
	if samples[0][0] != 0 {
		t.Fatalf("stopped voice still audible: %v", samples[0])
	}
	if len(b.voices) != 0 {
		t.Fatalf("stopped voice not removed")
	}
}
