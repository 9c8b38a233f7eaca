/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package executor plays composed jobs and coordinates narration ducking.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/audio"
	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
	"github.com/luizarrieira/radio-lrr-iv/internal/events"
	"github.com/luizarrieira/radio-lrr-iv/internal/sequence"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
)

// Buffers resolves content paths to decoded buffers.
type Buffers interface {
	Get(path string) (audio.Buffer, bool)
}

// Presenter shows cover art for what is playing.
type Presenter interface {
	ShowCover(ref string)
}

// Report counts what a job actually played.
type Report struct {
	Played     int
	Skipped    int
	Narrations int
}

// Config wires an executor.
type Config struct {
	Player       audio.Player
	Buffers      Buffers
	Clock        clock.Clock
	Presenter    Presenter
	Events       events.Publisher
	DefaultCover string
	Logger       zerolog.Logger
}

// Executor plays one job at a time.
type Executor struct {
	player       audio.Player
	buffers      Buffers
	clock        clock.Clock
	presenter    Presenter
	events       events.Publisher
	ducker       *Ducker
	defaultCover string
	logger       zerolog.Logger

	mu         sync.Mutex
	trackStart time.Time
	trackLen   time.Duration
	playing    bool
	onTrackEnd func()
}

// New creates an executor.
func New(cfg Config) *Executor {
	if cfg.Events == nil {
		cfg.Events = events.Nop{}
	}
	return &Executor{
		player:       cfg.Player,
		buffers:      cfg.Buffers,
		clock:        cfg.Clock,
		presenter:    cfg.Presenter,
		events:       cfg.Events,
		ducker:       NewDucker(cfg.Player.MusicGain(), cfg.Clock),
		defaultCover: cfg.DefaultCover,
		logger:       cfg.Logger.With().Str("component", "executor").Logger(),
	}
}

// Ducker returns the executor's ducking coordinator.
func (e *Executor) Ducker() *Ducker {
	return e.ducker
}

// OnTrackEnd registers f to run after each track segment ends, whether it
// completed or was cut short.
func (e *Executor) OnTrackEnd(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTrackEnd = f
}

// TrackRemaining returns the time left on the playing track. It reports
// false when no track is playing.
func (e *Executor) TrackRemaining() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		return 0, false
	}
	left := e.trackLen - e.clock.Now().Sub(e.trackStart)
	if left < 0 {
		left = 0
	}
	return left, true
}

// Execute plays the job's segments in order, then its followup. Segments
// whose buffer is missing are skipped. It returns early if ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, job *sequence.Job) Report {
	var rep Report
	logger := e.logger.With().Str("job_id", job.ID).Str("pattern", string(job.Pattern)).Logger()

	for _, seg := range job.Segments {
		if ctx.Err() != nil {
			return rep
		}
		var ok bool
		if seg.Kind.IsTrack() {
			ok = e.playTrack(ctx, job, seg, &rep, logger)
		} else {
			ok = e.playFiller(ctx, job, seg, logger)
		}
		if ok {
			rep.Played++
			telemetry.SegmentsPlayed.WithLabelValues(string(seg.Kind)).Inc()
		} else {
			rep.Skipped++
			telemetry.SegmentsSkipped.WithLabelValues(string(seg.Kind)).Inc()
		}
	}

	if job.Followup != nil && ctx.Err() == nil {
		seg := *job.Followup
		if e.playFollowup(ctx, job, seg, logger) {
			rep.Played++
			telemetry.SegmentsPlayed.WithLabelValues(string(seg.Kind)).Inc()
		} else {
			rep.Skipped++
			telemetry.SegmentsSkipped.WithLabelValues(string(seg.Kind)).Inc()
		}
	}
	return rep
}

func (e *Executor) playFiller(ctx context.Context, job *sequence.Job, seg sequence.Segment, logger zerolog.Logger) bool {
	buf, ok := e.buffers.Get(seg.Path)
	if !ok {
		logger.Warn().Str("path", seg.Path).Str("kind", string(seg.Kind)).Msg("buffer missing, segment skipped")
		return false
	}
	e.showCover(e.defaultCover)
	e.announce(job, seg)
	return wait(ctx, e.play(buf, audio.BusMusic))
}

func (e *Executor) playFollowup(ctx context.Context, job *sequence.Job, seg sequence.Segment, logger zerolog.Logger) bool {
	buf, ok := e.buffers.Get(seg.Path)
	if !ok {
		logger.Warn().Str("path", seg.Path).Str("kind", string(seg.Kind)).Msg("followup buffer missing, skipped")
		return false
	}
	e.showCover(e.defaultCover)
	e.announce(job, seg)

	e.ducker.Begin()
	defer e.ducker.End()
	return wait(ctx, e.play(buf, audio.BusVoice))
}

func (e *Executor) play(buf audio.Buffer, bus audio.Bus) audio.Playback {
	return e.player.Play(audio.Cue{Buffer: buf, Bus: bus})[0]
}

// scheduledNarration is one placement queued against a playing track.
type scheduledNarration struct {
	placement sequence.Placement
	buf       audio.Buffer
	done      chan struct{}
	once      sync.Once

	mu        sync.Mutex
	duckT     clock.Timer
	startT    clock.Timer
	ducked    bool
	released  bool
	cancelled bool
	playback  audio.Playback
}

func (n *scheduledNarration) finish() {
	n.once.Do(func() { close(n.done) })
}

func (e *Executor) playTrack(ctx context.Context, job *sequence.Job, seg sequence.Segment, rep *Report, logger zerolog.Logger) bool {
	buf, ok := e.buffers.Get(seg.Path)
	if !ok {
		logger.Warn().Str("path", seg.Path).Msg("track buffer missing, segment skipped")
		return false
	}

	var narrations []*scheduledNarration
	for _, pl := range seg.Placements() {
		nb, ok := e.buffers.Get(pl.Candidate.Path)
		if !ok {
			logger.Warn().Str("path", pl.Candidate.Path).Msg("narration buffer missing, skipped")
			continue
		}
		narrations = append(narrations, &scheduledNarration{placement: pl, buf: nb, done: make(chan struct{})})
	}

	cover := e.defaultCover
	if seg.Track != nil && seg.Track.Cover != "" {
		cover = seg.Track.Cover
	}

	e.mu.Lock()
	e.trackStart = e.clock.Now()
	e.trackLen = buf.Duration()
	e.playing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.playing = false
		hook := e.onTrackEnd
		e.mu.Unlock()
		e.showCover(e.defaultCover)
		if hook != nil {
			hook()
		}
	}()

	e.showCover(cover)
	e.announce(job, seg)
	// Narrations are queued with the track so their offsets are measured on
	// the track's own sample timeline.
	cues := make([]audio.Cue, 0, len(narrations)+1)
	cues = append(cues, audio.Cue{Buffer: buf, Bus: audio.BusMusic})
	for _, n := range narrations {
		cues = append(cues, audio.Cue{Buffer: n.buf, Bus: audio.BusVoice, At: n.placement.StartOffset()})
	}
	pbs := e.player.Play(cues...)
	track := pbs[0]
	for i, n := range narrations {
		e.schedule(job, n, pbs[i+1])
	}

	completed := wait(ctx, track)
	if !completed {
		for _, n := range narrations {
			e.cancelNarration(n)
		}
	}
	for _, n := range narrations {
		select {
		case <-n.done:
		case <-ctx.Done():
			e.cancelNarration(n)
			<-n.done
			completed = false
		}
	}
	if !completed {
		return false
	}
	rep.Narrations += len(narrations)
	return true
}

// schedule arms the duck ahead of a queued narration and releases it when the
// narration's playback ends.
func (e *Executor) schedule(job *sequence.Job, n *scheduledNarration, pb audio.Playback) {
	offset := n.placement.StartOffset()
	lead := offset - DuckLead
	if lead < 0 {
		lead = 0
	}

	n.mu.Lock()
	n.playback = pb
	n.duckT = e.clock.AfterFunc(lead, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.cancelled || n.released || n.ducked {
			return
		}
		n.ducked = true
		e.ducker.Begin()
	})
	n.startT = e.clock.AfterFunc(offset, func() {
		n.mu.Lock()
		skip := n.cancelled || n.released
		n.mu.Unlock()
		if skip {
			return
		}
		e.events.Publish(events.EventNarration, events.Payload{
			"job_id":          job.ID,
			"path":            n.placement.Candidate.Path,
			"source":          n.placement.Source,
			"start_offset_ms": offset.Milliseconds(),
		})
	})
	n.mu.Unlock()

	go func() {
		<-pb.Done()
		e.release(n)
		n.finish()
	}()
}

func (e *Executor) release(n *scheduledNarration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.released = true
	if n.duckT != nil {
		n.duckT.Stop()
	}
	if n.startT != nil {
		n.startT.Stop()
	}
	if n.ducked {
		n.ducked = false
		e.ducker.End()
	}
}

// cancelNarration stops a queued narration; its completion goroutine
// releases the duck.
func (e *Executor) cancelNarration(n *scheduledNarration) {
	n.mu.Lock()
	n.cancelled = true
	pb := n.playback
	n.mu.Unlock()
	if pb != nil {
		pb.Stop()
	}
}

func (e *Executor) showCover(ref string) {
	if e.presenter != nil && ref != "" {
		e.presenter.ShowCover(ref)
	}
}

func (e *Executor) announce(job *sequence.Job, seg sequence.Segment) {
	payload := events.Payload{
		"job_id":  job.ID,
		"program": job.Program,
		"kind":    string(seg.Kind),
		"path":    seg.Path,
		"at":      e.clock.Now(),
	}
	if seg.Track != nil {
		payload["track"] = seg.Track.Name
		payload["track_id"] = seg.Track.ID
	}
	e.events.Publish(events.EventNowPlaying, payload)
}

func wait(ctx context.Context, pb audio.Playback) bool {
	select {
	case <-pb.Done():
		return true
	case <-ctx.Done():
		pb.Stop()
		return false
	}
}
