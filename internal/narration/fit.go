/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package narration selects narration clips that fit inside a track's zones and
// computes where they start.
package narration

import (
	"math/rand/v2"

	"github.com/luizarrieira/radio-lrr-iv/internal/catalog"
)

// Durations resolves a content path to its clip length in milliseconds.
type Durations interface {
	Lookup(path string) (int64, bool)
}

// Candidate is a narration clip with a known duration.
type Candidate struct {
	Path       string `json:"path"`
	DurationMs int64  `json:"duration_ms"`
}

// PickFitting returns a uniformly random member of pool whose duration is known
// and no longer than zoneLenMs. It reports false when nothing fits.
func PickFitting(pool []string, zoneLenMs int64, durations Durations, rnd *rand.Rand) (Candidate, bool) {
	fitting := Fitting(pool, zoneLenMs, durations)
	if len(fitting) == 0 {
		return Candidate{}, false
	}
	return fitting[rnd.IntN(len(fitting))], true
}

// Fitting filters pool to the candidates that fit in zoneLenMs, keeping order.
func Fitting(pool []string, zoneLenMs int64, durations Durations) []Candidate {
	if zoneLenMs <= 0 {
		return nil
	}
	out := make([]Candidate, 0, len(pool))
	for _, path := range pool {
		d, ok := durations.Lookup(path)
		if !ok || d <= 0 || d > zoneLenMs {
			continue
		}
		out = append(out, Candidate{Path: path, DurationMs: d})
	}
	return out
}

// StartOffset returns the track offset, in milliseconds, at which a clip of
// durationMs starts inside zone: its end is pinned to the zone end, and the start
// is clamped to the zone start when the clip would otherwise begin early.
func StartOffset(zone catalog.Zone, durationMs int64) int64 {
	start := zone.EndMs - durationMs
	if start < zone.StartMs {
		start = zone.StartMs
	}
	return start
}
