/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"errors"
	"strings"
	"testing"
)

const testCatalog = `
programs:
  - id: base
    tracks:
      - {id: one, name: ONE, path: musicas/ONE.wav, intro: {start: 1000, end: 3000}, cover: capas/one.jpg}
      - {id: two, path: musicas/TWO.wav, final: {start: 100000, end: 120000}}
    ids: [narracoes/ID_01.wav, {series: "narracoes/ID_%02d.wav", from: 2, count: 3}]
    ads: [{series: "adv/AD%03d.wav", from: 1, count: 2}]
    general: [narracoes/GENERAL_01.wav]
    time_of_day:
      morning: [narracoes/MORNING_01.wav]
    transitions:
      toad: [narracoes/TO_AD_01.wav]
    track_intros:
      ONE: [narracoes/ONE_01.wav]
  - id: extra
    tracks:
      - {id: three, name: THREE, path: musicas/THREE.wav}
    track_intros:
      THREE: [narracoes/THREE_01.wav]
  - id: both
    include: [base, extra]
`

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := c.IDs(); len(got) != 3 || got[0] != "base" || got[2] != "both" {
		t.Fatalf("unexpected ids %v", got)
	}

	base, err := c.Get("base")
	if err != nil {
		t.Fatalf("Get(base): %v", err)
	}

	ids := base.Pool(PoolIDs)
	want := []string{"narracoes/ID_01.wav", "narracoes/ID_02.wav", "narracoes/ID_03.wav", "narracoes/ID_04.wav"}
	if len(ids) != len(want) {
		t.Fatalf("ids pool = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	if ads := base.Pool(PoolAds); len(ads) != 2 || ads[1] != "adv/AD002.wav" {
		t.Errorf("ads pool = %v", ads)
	}
	if len(base.Pool(PoolSolo)) != 0 {
		t.Errorf("expected empty solo pool")
	}
	if got := base.TransitionPool(TransitionAds); len(got) != 1 {
		t.Errorf("toad pool = %v", got)
	}
	if got := base.TimePool(Morning); len(got) != 1 {
		t.Errorf("morning pool = %v", got)
	}

	if base.Tracks[0].Intro == nil || base.Tracks[0].Intro.Length() != 2000 {
		t.Errorf("unexpected intro zone %+v", base.Tracks[0].Intro)
	}
	if base.Tracks[1].Name != "two" {
		t.Errorf("name should default to id, got %q", base.Tracks[1].Name)
	}

	both, _ := c.Get("both")
	if len(both.Tracks) != 3 {
		t.Fatalf("included program has %d tracks, want 3", len(both.Tracks))
	}
	if len(both.IntroPool("ONE")) != 1 || len(both.IntroPool("THREE")) != 1 {
		t.Errorf("included intro pools not merged: %v", both.TrackIntros)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown transition", "programs:\n  - id: a\n    transitions:\n      toelsewhere: [x.wav]\n"},
		{"unknown time of day", "programs:\n  - id: a\n    time_of_day:\n      dawn: [x.wav]\n"},
		{"inverted zone", "programs:\n  - id: a\n    tracks:\n      - {id: t, path: t.wav, intro: {start: 5, end: 1}}\n"},
		{"duplicate program", "programs:\n  - id: a\n  - id: a\n"},
		{"forward include", "programs:\n  - id: a\n    include: [b]\n  - id: b\n"},
		{"series without count", "programs:\n  - id: a\n    ids: [{series: \"ID_%02d.wav\"}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGetUnknownProgram(t *testing.T) {
	c, err := New(&Program{ID: "a"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Get("missing"); !errors.Is(err, ErrUnknownProgram) {
		t.Fatalf("expected ErrUnknownProgram, got %v", err)
	}
	if !c.Has("a") || c.Has("missing") {
		t.Fatal("Has reported wrong membership")
	}
}

func TestTimeOfDayFor(t *testing.T) {
	tests := []struct {
		hour int
		want TimeOfDay
	}{
		{0, Night}, {4, Night}, {5, Morning}, {11, Morning},
		{12, Afternoon}, {17, Afternoon}, {18, Evening}, {21, Evening}, {22, Night}, {23, Night},
	}
	for _, tt := range tests {
		if got := TimeOfDayFor(tt.hour); got != tt.want {
			t.Errorf("TimeOfDayFor(%d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestShippedCatalogLoads(t *testing.T) {
	c, err := LoadFile("../../configs/programs.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	for _, id := range []string{"ivbase", "tlad", "ivtlad"} {
		p, err := c.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if len(p.Tracks) == 0 {
			t.Errorf("program %s has no tracks", id)
		}
		for _, tr := range Transitions {
			if len(p.TransitionPool(tr)) == 0 {
				t.Errorf("program %s has empty %s pool", id, tr)
			}
		}
	}
	ivtlad, _ := c.Get("ivtlad")
	if len(ivtlad.Tracks) != 40 {
		t.Errorf("ivtlad should carry 40 tracks, got %d", len(ivtlad.Tracks))
	}
	if got := ivtlad.Pool(PoolSolo); len(got) != 23 || got[22] != "narracoes/SOLO_23.wav" {
		t.Errorf("unexpected ivtlad solo pool tail %v", got[len(got)-1])
	}
}
