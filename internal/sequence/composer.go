/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequence

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/catalog"
	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
	"github.com/luizarrieira/radio-lrr-iv/internal/drawqueue"
	"github.com/luizarrieira/radio-lrr-iv/internal/narration"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
	"github.com/luizarrieira/radio-lrr-iv/internal/weather"
)

// ErrEmptyProgram is returned when a program has no tracks to play.
var ErrEmptyProgram = errors.New("program has no tracks")

const (
	introChance = 0.7
	finalChance = 0.7

	// Intro pool split: general, then track-specific, remainder time of day.
	introGeneralShare = 0.4
	introTrackShare   = 0.4

	// Final pool split: general, remainder transition.
	finalGeneralShare = 0.7
)

type weightedPattern struct {
	pattern Pattern
	weight  int
}

var generalPatterns = []weightedPattern{
	{"id+track", 3},
	{"solo+track", 3},
	{"track", 3},
	{"ad+track", 1},
	{"ad+id+track", 1},
	{"id+solo+track", 1},
}

// Two candidates per transition, picked 50/50.
var hintPatterns = map[catalog.Transition][2]Pattern{
	catalog.TransitionAds:     {"ad+track", "ad+id+track"},
	catalog.TransitionNews:    {"id+track", "track"},
	catalog.TransitionWeather: {"id+track", "track"},
}

type weightedTransition struct {
	transition catalog.Transition
	weight     int
}

var transitionWeights = []weightedTransition{
	{catalog.TransitionAds, 3},
	{catalog.TransitionNews, 2},
	{catalog.TransitionWeather, 1},
}

var fillerPools = map[SegmentKind]catalog.PoolKind{
	KindID:   catalog.PoolIDs,
	KindSolo: catalog.PoolSolo,
	KindAd:   catalog.PoolAds,
	KindNews: catalog.PoolNews,
}

type programQueues struct {
	tracks *drawqueue.Queue[int]
	filler map[catalog.PoolKind]*drawqueue.Queue[string]
}

func (q *programQueues) reset() {
	q.tracks.Reset()
	for _, fq := range q.filler {
		fq.Reset()
	}
}

// Composer builds jobs from program catalogs. It is safe for concurrent use.
type Composer struct {
	catalog   *catalog.Catalog
	durations narration.Durations
	weather   weather.Provider
	clock     clock.Clock
	logger    zerolog.Logger

	mu     sync.Mutex
	rnd    *rand.Rand
	queues map[string]*programQueues
}

// NewComposer creates a composer. The random source is owned by the composer.
func NewComposer(cat *catalog.Catalog, durations narration.Durations, wx weather.Provider, clk clock.Clock, rnd *rand.Rand, logger zerolog.Logger) *Composer {
	if wx == nil {
		wx = weather.Static("Clear")
	}
	return &Composer{
		catalog:   cat,
		durations: durations,
		weather:   wx,
		clock:     clk,
		logger:    logger.With().Str("component", "composer").Logger(),
		rnd:       rnd,
		queues:    make(map[string]*programQueues),
	}
}

// Compose builds the next job for a program. A valid hint selects one of the
// hint's two patterns; otherwise a general pattern is drawn by weight.
func (c *Composer) Compose(programID string, hint catalog.Transition) (*Job, error) {
	prog, err := c.catalog.Get(programID)
	if err != nil {
		return nil, err
	}
	if len(prog.Tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyProgram, programID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.queuesFor(prog)
	pattern := c.choosePattern(hint)
	job := &Job{
		ID:         uuid.NewString(),
		Program:    prog.ID,
		Pattern:    pattern,
		ComposedAt: c.clock.Now(),
	}

	for _, kind := range pattern.Kinds() {
		if kind.IsTrack() {
			idx, _ := q.tracks.Next()
			seg := c.trackSegment(prog, &prog.Tracks[idx])
			if seg.Final != nil && seg.Final.Transition != catalog.TransitionNone {
				job.Trigger = seg.Final.Transition
			}
			job.Segments = append(job.Segments, seg)
			continue
		}

		path, ok := q.filler[fillerPools[kind]].Next()
		if !ok {
			c.logger.Debug().Str("program", prog.ID).Str("kind", string(kind)).Msg("filler pool empty, segment omitted")
			continue
		}
		job.Segments = append(job.Segments, Segment{Kind: kind, Path: path})
	}

	if job.Trigger != catalog.TransitionNone {
		job.Followup = c.followup(prog, q, job.Trigger)
	}

	telemetry.JobsComposed.WithLabelValues(prog.ID, string(pattern)).Inc()
	c.logger.Debug().
		Str("job_id", job.ID).
		Str("program", prog.ID).
		Str("pattern", string(pattern)).
		Str("trigger", string(job.Trigger)).
		Int("segments", len(job.Segments)).
		Msg("job composed")

	return job, nil
}

// Reset reshuffles every draw queue of a program.
func (c *Composer) Reset(programID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.queues[programID]; ok {
		q.reset()
	}
}

func (c *Composer) queuesFor(prog *catalog.Program) *programQueues {
	if q, ok := c.queues[prog.ID]; ok {
		return q
	}
	idx := make([]int, len(prog.Tracks))
	for i := range idx {
		idx[i] = i
	}
	q := &programQueues{
		tracks: drawqueue.New(idx, c.rnd),
		filler: make(map[catalog.PoolKind]*drawqueue.Queue[string], len(fillerPools)),
	}
	for _, pool := range fillerPools {
		q.filler[pool] = drawqueue.New(prog.Pool(pool), c.rnd)
	}
	c.queues[prog.ID] = q
	return q
}

func (c *Composer) choosePattern(hint catalog.Transition) Pattern {
	if pair, ok := hintPatterns[hint]; ok {
		return pair[c.rnd.IntN(2)]
	}

	total := 0
	for _, wp := range generalPatterns {
		total += wp.weight
	}
	r := c.rnd.IntN(total)
	for _, wp := range generalPatterns {
		if r < wp.weight {
			return wp.pattern
		}
		r -= wp.weight
	}
	return generalPatterns[0].pattern
}

func (c *Composer) chooseTransition() catalog.Transition {
	total := 0
	for _, wt := range transitionWeights {
		total += wt.weight
	}
	r := c.rnd.IntN(total)
	for _, wt := range transitionWeights {
		if r < wt.weight {
			return wt.transition
		}
		r -= wt.weight
	}
	return transitionWeights[0].transition
}

func (c *Composer) trackSegment(prog *catalog.Program, track *catalog.Track) Segment {
	seg := Segment{Kind: KindTrack, Path: track.Path, Track: track}

	if track.Intro != nil && c.rnd.Float64() < introChance {
		var pool []string
		var source string
		switch r := c.rnd.Float64(); {
		case r < introGeneralShare:
			pool, source = prog.General, SourceGeneral
		case r < introGeneralShare+introTrackShare:
			pool, source = prog.IntroPool(track.Name), SourceTrack
		default:
			tod := catalog.TimeOfDayFor(c.clock.Now().Hour())
			pool, source = prog.TimePool(tod), SourceTime
		}
		if cand, ok := narration.PickFitting(pool, track.Intro.Length(), c.durations, c.rnd); ok {
			seg.Intro = &Placement{Zone: *track.Intro, Candidate: cand, Source: source}
		}
	}

	if track.Final != nil && c.rnd.Float64() < finalChance {
		if c.rnd.Float64() < finalGeneralShare {
			if cand, ok := narration.PickFitting(prog.General, track.Final.Length(), c.durations, c.rnd); ok {
				seg.Final = &Placement{Zone: *track.Final, Candidate: cand, Source: SourceGeneral}
			}
		} else {
			t := c.chooseTransition()
			if cand, ok := narration.PickFitting(prog.TransitionPool(t), track.Final.Length(), c.durations, c.rnd); ok {
				seg.Final = &Placement{Zone: *track.Final, Candidate: cand, Source: SourceTransition, Transition: t}
			}
		}
	}

	return seg
}

func (c *Composer) followup(prog *catalog.Program, q *programQueues, t catalog.Transition) *Segment {
	switch t {
	case catalog.TransitionNews:
		if path, ok := q.filler[catalog.PoolNews].Next(); ok {
			return &Segment{Kind: KindNews, Path: path}
		}
	case catalog.TransitionWeather:
		if path, ok := weather.PickFile(c.weather.Current(), c.clock.Now().Hour(), c.rnd); ok {
			return &Segment{Kind: KindWeather, Path: path}
		}
	}
	c.logger.Debug().Str("program", prog.ID).Str("trigger", string(t)).Msg("no followup for trigger")
	return nil
}
