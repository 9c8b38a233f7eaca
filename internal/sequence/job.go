/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequence models playback jobs and composes them from program catalogs.
package sequence

import (
	"strings"
	"time"

	"github.com/luizarrieira/radio-lrr-iv/internal/catalog"
	"github.com/luizarrieira/radio-lrr-iv/internal/narration"
)

// SegmentKind identifies what a segment plays.
type SegmentKind string

const (
	KindID      SegmentKind = "id"
	KindSolo    SegmentKind = "solo"
	KindAd      SegmentKind = "ad"
	KindNews    SegmentKind = "news"
	KindWeather SegmentKind = "weather"
	KindTrack   SegmentKind = "track"
)

// IsTrack reports whether the kind is a music track.
func (k SegmentKind) IsTrack() bool { return k == KindTrack }

// Pattern is an ordered list of segment kinds joined by "+", e.g. "ad+id+track".
type Pattern string

// Kinds splits the pattern into its segment kinds.
func (p Pattern) Kinds() []SegmentKind {
	parts := strings.Split(string(p), "+")
	out := make([]SegmentKind, 0, len(parts))
	for _, part := range parts {
		out = append(out, SegmentKind(part))
	}
	return out
}

// Narration source pools.
const (
	SourceGeneral    = "general"
	SourceTrack      = "track"
	SourceTime       = "time"
	SourceTransition = "transition"
)

// Placement is a narration bound to a track zone.
type Placement struct {
	Zone       catalog.Zone        `json:"zone"`
	Candidate  narration.Candidate `json:"candidate"`
	Source     string              `json:"source"`
	Transition catalog.Transition  `json:"transition,omitempty"`
}

// StartOffset is the position inside the track at which the narration starts.
func (p Placement) StartOffset() time.Duration {
	return time.Duration(narration.StartOffset(p.Zone, p.Candidate.DurationMs)) * time.Millisecond
}

// Segment is one step of a job: a filler clip, or a track with optional narrations.
type Segment struct {
	Kind  SegmentKind    `json:"kind"`
	Path  string         `json:"path"`
	Track *catalog.Track `json:"track,omitempty"`
	Intro *Placement     `json:"intro,omitempty"`
	Final *Placement     `json:"final,omitempty"`
}

// Placements returns the segment's narrations in track order.
func (s Segment) Placements() []Placement {
	var out []Placement
	if s.Intro != nil {
		out = append(out, *s.Intro)
	}
	if s.Final != nil {
		out = append(out, *s.Final)
	}
	return out
}

// Job is a composed sequence ready for preloading and playback. It is not
// modified once composed.
type Job struct {
	ID         string             `json:"id"`
	Program    string             `json:"program"`
	Pattern    Pattern            `json:"pattern"`
	Segments   []Segment          `json:"segments"`
	Trigger    catalog.Transition `json:"trigger,omitempty"`
	Followup   *Segment           `json:"followup,omitempty"`
	ComposedAt time.Time          `json:"composed_at"`
}

// Paths returns every distinct content path the job plays, in play order.
func (j *Job) Paths() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, seg := range j.Segments {
		add(seg.Path)
		for _, pl := range seg.Placements() {
			add(pl.Candidate.Path)
		}
	}
	if j.Followup != nil {
		add(j.Followup.Path)
	}
	return out
}

// TrackSegment returns the job's track segment, if any.
func (j *Job) TrackSegment() (Segment, bool) {
	for _, seg := range j.Segments {
		if seg.Kind.IsTrack() {
			return seg, true
		}
	}
	return Segment{}, false
}
