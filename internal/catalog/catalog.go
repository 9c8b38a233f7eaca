/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog holds the immutable per-program content catalogs.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownProgram is returned when a program id is not in the catalog.
var ErrUnknownProgram = errors.New("unknown program")

// Zone is a millisecond window inside a track reserved for narration.
type Zone struct {
	StartMs int64 `json:"start_ms" yaml:"start"`
	EndMs   int64 `json:"end_ms" yaml:"end"`
}

// Length returns the zone length in milliseconds.
func (z Zone) Length() int64 {
	return z.EndMs - z.StartMs
}

// Valid reports whether the zone is well formed.
func (z Zone) Valid() bool {
	return z.StartMs >= 0 && z.StartMs < z.EndMs
}

// Track is one music track. Nil zones mean no narration may be placed there.
type Track struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Path  string `json:"path" yaml:"path"`
	Intro *Zone  `json:"intro,omitempty" yaml:"intro"`
	Final *Zone  `json:"final,omitempty" yaml:"final"`
	Cover string `json:"cover" yaml:"cover"`
}

// PoolKind names a filler pool drawn through a draw queue.
type PoolKind string

const (
	PoolIDs  PoolKind = "ids"
	PoolSolo PoolKind = "solo"
	PoolAds  PoolKind = "ads"
	PoolNews PoolKind = "news"
)

// TimeOfDay names an hour bucket.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// TimeOfDayFor maps a wall-clock hour to its bucket.
func TimeOfDayFor(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	case hour >= 18 && hour < 22:
		return Evening
	default:
		return Night
	}
}

// Transition is the sub-pool identity of a final-zone narration that biases the
// following sequence. The empty value means no transition.
type Transition string

const (
	TransitionNone    Transition = ""
	TransitionAds     Transition = "toad"
	TransitionNews    Transition = "tonews"
	TransitionWeather Transition = "toweather"
)

// Transitions lists the transition kinds in weight order.
var Transitions = []Transition{TransitionAds, TransitionNews, TransitionWeather}

// Valid reports whether t is one of the known transitions.
func (t Transition) Valid() bool {
	switch t {
	case TransitionAds, TransitionNews, TransitionWeather:
		return true
	}
	return false
}

// Program is a named content catalog. It is not modified after load.
type Program struct {
	ID          string
	Tracks      []Track
	Filler      map[PoolKind][]string
	General     []string
	TimeOfDay   map[TimeOfDay][]string
	Transitions map[Transition][]string
	TrackIntros map[string][]string
}

// Pool returns a filler pool.
func (p *Program) Pool(kind PoolKind) []string {
	return p.Filler[kind]
}

// TimePool returns the narration pool for an hour bucket.
func (p *Program) TimePool(tod TimeOfDay) []string {
	return p.TimeOfDay[tod]
}

// TransitionPool returns the narration pool for a transition.
func (p *Program) TransitionPool(t Transition) []string {
	return p.Transitions[t]
}

// IntroPool returns the track-specific intro narrations for a track name.
func (p *Program) IntroPool(trackName string) []string {
	return p.TrackIntros[trackName]
}

// Catalog is the set of programs the station can switch between.
type Catalog struct {
	programs map[string]*Program
	order    []string
}

// New builds a catalog from programs, rejecting duplicates and malformed zones.
func New(programs ...*Program) (*Catalog, error) {
	c := &Catalog{programs: make(map[string]*Program, len(programs))}
	for _, p := range programs {
		if p == nil || p.ID == "" {
			return nil, fmt.Errorf("program without id")
		}
		if _, dup := c.programs[p.ID]; dup {
			return nil, fmt.Errorf("duplicate program %q", p.ID)
		}
		for _, tr := range p.Tracks {
			if tr.Path == "" {
				return nil, fmt.Errorf("program %s: track %q has no path", p.ID, tr.ID)
			}
			if tr.Intro != nil && !tr.Intro.Valid() {
				return nil, fmt.Errorf("program %s: track %q has invalid intro zone %+v", p.ID, tr.ID, *tr.Intro)
			}
			if tr.Final != nil && !tr.Final.Valid() {
				return nil, fmt.Errorf("program %s: track %q has invalid final zone %+v", p.ID, tr.ID, *tr.Final)
			}
		}
		c.programs[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Get returns a program by id.
func (c *Catalog) Get(id string) (*Program, error) {
	p, ok := c.programs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, id)
	}
	return p, nil
}

// Has reports whether id is a known program.
func (c *Catalog) Has(id string) bool {
	_, ok := c.programs[id]
	return ok
}

// IDs returns program ids in declaration order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Summary describes a program for the control surface.
type Summary struct {
	ID     string `json:"id"`
	Tracks int    `json:"tracks"`
	Pools  int    `json:"pools"`
}

// Summaries lists programs sorted by id.
func (c *Catalog) Summaries() []Summary {
	out := make([]Summary, 0, len(c.programs))
	for _, p := range c.programs {
		pools := len(p.Filler) + len(p.TimeOfDay) + len(p.Transitions) + 1
		out = append(out, Summary{ID: p.ID, Tracks: len(p.Tracks), Pools: pools})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
