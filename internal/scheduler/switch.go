/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"fmt"

	"github.com/luizarrieira/radio-lrr-iv/internal/catalog"
	"github.com/luizarrieira/radio-lrr-iv/internal/events"
	"github.com/luizarrieira/radio-lrr-iv/internal/preload"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
)

// SwitchOutcome reports what a switch request did.
type SwitchOutcome string

const (
	// OutcomeSelected: the loop is not running yet and the program becomes the initial one.
	OutcomeSelected SwitchOutcome = "selected"
	// OutcomeNoop: the request changed nothing.
	OutcomeNoop SwitchOutcome = "noop"
	// OutcomeRequested: a job for the target is being prepared in the pending slot.
	OutcomeRequested SwitchOutcome = "requested"
	// OutcomeCancelled: the pending switch was dropped by switching back.
	OutcomeCancelled SwitchOutcome = "cancelled"
	// OutcomeDeferred: the track is about to end and the request waits for it.
	OutcomeDeferred SwitchOutcome = "deferred"
	// OutcomeCommitted: the pending job started playing.
	OutcomeCommitted SwitchOutcome = "committed"
)

var outcomeEvents = map[SwitchOutcome]events.EventType{
	OutcomeRequested: events.EventSwitchRequested,
	OutcomeCancelled: events.EventSwitchCancelled,
	OutcomeDeferred:  events.EventSwitchDeferred,
}

// RequestSwitch asks the station to move to program target.
func (s *Scheduler) RequestSwitch(target string) (SwitchOutcome, error) {
	if !s.programs.Has(target) {
		return "", fmt.Errorf("%w: %s", catalog.ErrUnknownProgram, target)
	}

	s.mu.Lock()
	var (
		outcome SwitchOutcome
		err     error
		current = s.current
	)
	switch {
	case !s.started:
		s.current = target
		outcome = OutcomeSelected
	case s.inLockout():
		s.deferred = target
		outcome = OutcomeDeferred
	default:
		outcome, err = s.applySwitch(target)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("target", target).Msg("program switch failed")
		return "", err
	}

	telemetry.ProgramSwitches.WithLabelValues(string(outcome)).Inc()
	s.logger.Info().
		Str("current", current).
		Str("target", target).
		Str("outcome", string(outcome)).
		Msg("program switch request")
	if ev, ok := outcomeEvents[outcome]; ok {
		s.events.Publish(ev, events.Payload{"current": current, "target": target})
	}
	if outcome == OutcomeRequested || outcome == OutcomeCancelled {
		s.signal()
	}
	return outcome, nil
}

// inLockout reports whether the playing track ends within the lockout
// window. Callers hold s.mu.
func (s *Scheduler) inLockout() bool {
	left, ok := s.player.TrackRemaining()
	return ok && left < s.lockout
}

// applySwitch moves between Stable and SwitchRequested. Callers hold s.mu.
func (s *Scheduler) applySwitch(target string) (SwitchOutcome, error) {
	s.deferred = ""

	switch target {
	case s.current:
		if s.switchTarget == "" {
			return OutcomeNoop, nil
		}
		s.switchTarget = ""
		s.clearSlot(preload.SlotPending)
		return OutcomeCancelled, nil
	case s.switchTarget:
		return OutcomeNoop, nil
	}

	s.clearSlot(preload.SlotPending)
	s.switchTarget = target
	if err := s.startPreload(preload.SlotPending, target); err != nil {
		s.switchTarget = ""
		return "", fmt.Errorf("prepare %s: %w", target, err)
	}
	return OutcomeRequested, nil
}

// trackEnded re-submits a switch deferred by the lockout.
func (s *Scheduler) trackEnded() {
	s.mu.Lock()
	target := s.deferred
	s.deferred = ""
	s.mu.Unlock()

	if target == "" {
		return
	}
	if _, err := s.RequestSwitch(target); err != nil {
		s.logger.Warn().Err(err).Str("target", target).Msg("deferred switch failed")
	}
}
