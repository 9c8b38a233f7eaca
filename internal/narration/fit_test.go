/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package narration

import (
	"math/rand/v2"
	"testing"

	"github.com/luizarrieira/radio-lrr-iv/internal/catalog"
)

type durationMap map[string]int64

func (m durationMap) Lookup(path string) (int64, bool) {
	d, ok := m[path]
	return d, ok
}

func TestStartOffset(t *testing.T) {
	tests := []struct {
		name     string
		zone     catalog.Zone
		duration int64
		want     int64
	}{
		{"end pinned to zone end", catalog.Zone{StartMs: 1000, EndMs: 3000}, 1500, 1500},
		{"exact fit", catalog.Zone{StartMs: 1000, EndMs: 3000}, 2000, 1000},
		{"longer clip clamped to zone start", catalog.Zone{StartMs: 1000, EndMs: 3000}, 2500, 1000},
		{"final zone", catalog.Zone{StartMs: 188733, EndMs: 216000}, 7000, 209000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartOffset(tt.zone, tt.duration); got != tt.want {
				t.Errorf("StartOffset(%+v, %d) = %d, want %d", tt.zone, tt.duration, got, tt.want)
			}
		})
	}
}

func TestPickFittingNeverExceedsZone(t *testing.T) {
	durations := durationMap{
		"a.wav": 500,
		"b.wav": 1999,
		"c.wav": 2000,
		"d.wav": 2001,
		"e.wav": 9000,
	}
	pool := []string{"a.wav", "b.wav", "c.wav", "d.wav", "e.wav", "unknown.wav"}
	zone := catalog.Zone{StartMs: 4000, EndMs: 6000}
	rnd := rand.New(rand.NewPCG(7, 8))

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		c, ok := PickFitting(pool, zone.Length(), durations, rnd)
		if !ok {
			t.Fatal("expected a fitting candidate")
		}
		start := StartOffset(zone, c.DurationMs)
		if start < zone.StartMs || start+c.DurationMs > zone.EndMs {
			t.Fatalf("%s placed at [%d,%d] outside zone %+v", c.Path, start, start+c.DurationMs, zone)
		}
		seen[c.Path] = true
	}
	for _, p := range []string{"d.wav", "e.wav", "unknown.wav"} {
		if seen[p] {
			t.Errorf("%s should never be chosen", p)
		}
	}
	if len(seen) != 3 {
		t.Errorf("expected all three fitting clips to be drawn, saw %v", seen)
	}
}

func TestPickFittingEmpty(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 1))
	if _, ok := PickFitting([]string{"long.wav"}, 1000, durationMap{"long.wav": 5000}, rnd); ok {
		t.Fatal("expected no candidate")
	}
	if _, ok := PickFitting(nil, 1000, durationMap{}, rnd); ok {
		t.Fatal("expected no candidate from empty pool")
	}
}

func TestPickFittingDeterministicForSeed(t *testing.T) {
	durations := durationMap{"a.wav": 10, "b.wav": 20, "c.wav": 30}
	pool := []string{"a.wav", "b.wav", "c.wav"}

	first, _ := PickFitting(pool, 100, durations, rand.New(rand.NewPCG(42, 42)))
	second, _ := PickFitting(pool, 100, durations, rand.New(rand.NewPCG(42, 42)))
	if first != second {
		t.Fatalf("same seed picked %v then %v", first, second)
	}
}
