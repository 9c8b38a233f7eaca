/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler runs the station loop: it keeps the next job preloaded,
// hands jobs to the executor and commits program switches.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/catalog"
	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
	"github.com/luizarrieira/radio-lrr-iv/internal/events"
	"github.com/luizarrieira/radio-lrr-iv/internal/executor"
	"github.com/luizarrieira/radio-lrr-iv/internal/preload"
	"github.com/luizarrieira/radio-lrr-iv/internal/scheduler/state"
	"github.com/luizarrieira/radio-lrr-iv/internal/sequence"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
)

// Defaults.
const (
	DefaultLockout           = 30 * time.Second
	DefaultStarvationBackoff = 2 * time.Second
)

// ErrNoProgram is returned by Start when no program has been selected.
var ErrNoProgram = errors.New("no program selected")

// Composer builds jobs for a program.
type Composer interface {
	Compose(programID string, hint catalog.Transition) (*sequence.Job, error)
	Reset(programID string)
}

// Preloader loads every buffer a job needs.
type Preloader interface {
	Run(ctx context.Context, job *sequence.Job, token preload.Token) (preload.Result, error)
	Epochs() *preload.Epochs
}

// Player executes jobs on the playback timeline.
type Player interface {
	Execute(ctx context.Context, job *sequence.Job) executor.Report
	TrackRemaining() (time.Duration, bool)
	OnTrackEnd(f func())
}

// Programs reports which program ids exist.
type Programs interface {
	Has(id string) bool
}

// RunState describes the loop.
type RunState string

const (
	StateIdle    RunState = "idle"
	StateRunning RunState = "running"
	StateStarved RunState = "starved"
)

// Config wires a scheduler.
type Config struct {
	Composer          Composer
	Preloader         Preloader
	Player            Player
	Programs          Programs
	Clock             clock.Clock
	Events            events.Publisher
	History           *state.Store
	InitialProgram    string
	Lockout           time.Duration
	StarvationBackoff time.Duration
	Logger            zerolog.Logger
}

// Scheduler owns the two job slots and the playback loop.
type Scheduler struct {
	composer  Composer
	preloader Preloader
	player    Player
	programs  Programs
	clock     clock.Clock
	events    events.Publisher
	history   *state.Store
	lockout   time.Duration
	backoff   time.Duration
	logger    zerolog.Logger

	wake chan struct{}
	done chan struct{}

	mu           sync.Mutex
	ctx          context.Context
	started      bool
	state        RunState
	current      string
	switchTarget string
	deferred     string
	slots        [2]slot
	hint         catalog.Transition
	playing      *sequence.Job
	executed     int
}

// New creates a scheduler. It does nothing until Start.
func New(cfg Config) *Scheduler {
	if cfg.Events == nil {
		cfg.Events = events.Nop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.History == nil {
		cfg.History = state.NewStore(state.DefaultCapacity)
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = DefaultLockout
	}
	if cfg.StarvationBackoff <= 0 {
		cfg.StarvationBackoff = DefaultStarvationBackoff
	}

	s := &Scheduler{
		composer:  cfg.Composer,
		preloader: cfg.Preloader,
		player:    cfg.Player,
		programs:  cfg.Programs,
		clock:     cfg.Clock,
		events:    cfg.Events,
		history:   cfg.History,
		lockout:   cfg.Lockout,
		backoff:   cfg.StarvationBackoff,
		logger:    cfg.Logger.With().Str("component", "scheduler").Logger(),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		state:     StateIdle,
		current:   cfg.InitialProgram,
	}
	for i := range s.slots {
		s.slots[i].state = SlotEmpty
	}
	s.player.OnTrackEnd(s.trackEnded)
	return s
}

// Start launches the playback loop. Calling it again is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.current == "" {
		s.mu.Unlock()
		return ErrNoProgram
	}
	s.started = true
	s.ctx = ctx
	s.state = StateRunning
	program := s.current
	s.mu.Unlock()

	s.logger.Info().Str("program", program).Msg("scheduler loop started")
	go s.run(ctx)
	return nil
}

// Done is closed when the loop exits.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// History returns recently executed jobs.
func (s *Scheduler) History() []state.RecentPlay {
	return s.history.Recent()
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		s.playing = nil
		s.mu.Unlock()
		s.logger.Info().Msg("scheduler loop stopped")
	}()

	for {
		job := s.next(ctx)
		if job == nil {
			return
		}
		rep := s.player.Execute(ctx, job)
		s.finished(job, rep)
		if ctx.Err() != nil {
			return
		}
		// Deferred switches whose track never started still apply.
		s.trackEnded()
		if rep.Played == 0 {
			s.logger.Warn().Str("job_id", job.ID).Msg("job played nothing, backing off")
			s.pause(ctx)
		}
	}
}

// next blocks until a job is ready and returns it, or nil when ctx ends.
func (s *Scheduler) next(ctx context.Context) *sequence.Job {
	starved := false
	for {
		s.mu.Lock()
		job, committed, from := s.takeReady()
		if job != nil {
			s.playing = job
			s.hint = job.Trigger
			s.state = StateRunning
			s.ensureSlots()
			status := s.statusLocked()
			s.mu.Unlock()

			if committed {
				telemetry.ProgramSwitches.WithLabelValues(string(OutcomeCommitted)).Inc()
				s.events.Publish(events.EventSwitchCommitted, events.Payload{
					"from":   from,
					"to":     job.Program,
					"job_id": job.ID,
				})
				s.logger.Info().Str("from", from).Str("to", job.Program).Msg("program switch committed")
			}
			s.events.Publish(events.EventStatus, status.payload())
			return job
		}

		inFlight := s.ensureSlots()
		// Waiting on an in-flight preload is normal blocking.
		mustReport := !starved && !inFlight
		if mustReport {
			s.state = StateStarved
		}
		program := s.current
		s.mu.Unlock()

		if mustReport {
			starved = true
			telemetry.Starvations.Inc()
			s.events.Publish(events.EventStarved, events.Payload{"program": program})
			s.logger.Warn().Str("program", program).Msg("no job ready and nothing loading, station starved")
		}

		if !inFlight {
			s.pause(ctx)
		} else {
			select {
			case <-s.wake:
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// takeReady removes the job to play next from its slot. A ready pending
// job commits the switch. Callers hold s.mu.
func (s *Scheduler) takeReady() (job *sequence.Job, committed bool, from string) {
	pending := s.slots[preload.SlotPending]
	if s.switchTarget != "" && pending.state == SlotReady {
		from = s.current
		if err := s.setSlot(preload.SlotPending, slot{state: SlotEmpty}); err != nil {
			s.logger.Error().Err(err).Msg("take pending job")
			return nil, false, ""
		}
		s.current = s.switchTarget
		s.switchTarget = ""
		s.composer.Reset(s.current)
		s.clearSlot(preload.SlotNormal)
		return pending.job, true, from
	}

	normal := s.slots[preload.SlotNormal]
	if normal.state == SlotReady {
		if err := s.setSlot(preload.SlotNormal, slot{state: SlotEmpty}); err != nil {
			s.logger.Error().Err(err).Msg("take normal job")
			return nil, false, ""
		}
		return normal.job, false, ""
	}
	return nil, false, ""
}

// ensureSlots starts loads for empty slots that should hold a job and
// reports whether any needed slot is loading or ready. Callers hold s.mu.
func (s *Scheduler) ensureSlots() bool {
	inFlight := false
	if s.slots[preload.SlotNormal].state == SlotEmpty {
		if err := s.startPreload(preload.SlotNormal, s.current); err != nil {
			s.logger.Warn().Err(err).Str("program", s.current).Msg("normal slot compose failed")
		}
	}
	if s.slots[preload.SlotNormal].state != SlotEmpty {
		inFlight = true
	}

	if s.switchTarget != "" {
		if s.slots[preload.SlotPending].state == SlotEmpty {
			if err := s.startPreload(preload.SlotPending, s.switchTarget); err != nil {
				s.logger.Warn().Err(err).Str("program", s.switchTarget).Msg("pending slot compose failed")
			}
		}
		if s.slots[preload.SlotPending].state != SlotEmpty {
			inFlight = true
		}
	}
	return inFlight
}

// startPreload composes a job for program and loads it into role. Callers
// hold s.mu and the slot is empty or loading.
func (s *Scheduler) startPreload(role preload.Slot, program string) error {
	job, err := s.composer.Compose(program, s.hint)
	if err != nil {
		return err
	}
	token := s.preloader.Epochs().Issue(role)
	if err := s.setSlot(role, slot{state: SlotLoading, program: program, token: token, job: job}); err != nil {
		return err
	}

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	go s.preload(ctx, job, token)
	return nil
}

func (s *Scheduler) preload(ctx context.Context, job *sequence.Job, token preload.Token) {
	res, err := s.preloader.Run(ctx, job, token)

	s.mu.Lock()
	cur := s.slots[token.Slot]
	if cur.state != SlotLoading || cur.token != token {
		s.mu.Unlock()
		s.logger.Debug().
			Str("slot", token.Slot.String()).
			Uint64("epoch", token.Epoch).
			Str("job_id", job.ID).
			Msg("stale preload result ignored")
		return
	}

	if err != nil {
		if setErr := s.setSlot(token.Slot, slot{state: SlotEmpty}); setErr != nil {
			s.logger.Error().Err(setErr).Msg("reset slot after preload")
		}
		s.mu.Unlock()
		if !errors.Is(err, preload.ErrCancelled) {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("preload failed")
		}
		s.signal()
		return
	}

	cur.state = SlotReady
	if setErr := s.setSlot(token.Slot, cur); setErr != nil {
		s.mu.Unlock()
		s.logger.Error().Err(setErr).Msg("mark slot ready")
		return
	}
	s.mu.Unlock()

	s.signal()
	s.events.Publish(events.EventJobReady, events.Payload{
		"job_id":  job.ID,
		"program": job.Program,
		"slot":    token.Slot.String(),
		"loaded":  res.Loaded,
		"failed":  len(res.Failed),
	})
}

func (s *Scheduler) finished(job *sequence.Job, rep executor.Report) {
	play := state.RecentPlay{
		JobID:    job.ID,
		Program:  job.Program,
		Pattern:  string(job.Pattern),
		Played:   rep.Played,
		Skipped:  rep.Skipped,
		PlayedAt: s.clock.Now(),
	}
	if seg, ok := job.TrackSegment(); ok && seg.Track != nil {
		play.Track = seg.Track.Name
	}
	s.history.Add(play)

	s.mu.Lock()
	s.executed++
	if s.playing == job {
		s.playing = nil
	}
	s.mu.Unlock()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pause waits for the starvation backoff, a wake signal or ctx.
func (s *Scheduler) pause(ctx context.Context) {
	elapsed := make(chan struct{})
	timer := s.clock.AfterFunc(s.backoff, func() { close(elapsed) })
	defer timer.Stop()

	select {
	case <-elapsed:
	case <-s.wake:
	case <-ctx.Done():
	}
}

// SlotStatus describes one slot.
type SlotStatus struct {
	Role    string    `json:"role"`
	State   SlotState `json:"state"`
	Program string    `json:"program,omitempty"`
	JobID   string    `json:"job_id,omitempty"`
	Epoch   uint64    `json:"epoch"`
}

// Status is a snapshot of the scheduler.
type Status struct {
	State        RunState     `json:"state"`
	Started      bool         `json:"started"`
	Program      string       `json:"program"`
	SwitchTarget string       `json:"switch_target,omitempty"`
	Deferred     string       `json:"deferred,omitempty"`
	Slots        []SlotStatus `json:"slots"`
	PlayingJob   string       `json:"playing_job,omitempty"`
	Executed     int          `json:"executed"`
}

// Status returns a snapshot of the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Scheduler) statusLocked() Status {
	st := Status{
		State:        s.state,
		Started:      s.started,
		Program:      s.current,
		SwitchTarget: s.switchTarget,
		Deferred:     s.deferred,
		Executed:     s.executed,
	}
	for _, role := range []preload.Slot{preload.SlotNormal, preload.SlotPending} {
		sl := s.slots[role]
		ss := SlotStatus{Role: role.String(), State: sl.state, Program: sl.program, Epoch: sl.token.Epoch}
		if sl.job != nil {
			ss.JobID = sl.job.ID
		}
		st.Slots = append(st.Slots, ss)
	}
	if s.playing != nil {
		st.PlayingJob = s.playing.ID
	}
	return st
}

func (st Status) payload() events.Payload {
	return events.Payload{
		"state":         string(st.State),
		"program":       st.Program,
		"switch_target": st.SwitchTarget,
		"playing_job":   st.PlayingJob,
	}
}
