/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"errors"
	"fmt"

	"github.com/luizarrieira/radio-lrr-iv/internal/preload"
	"github.com/luizarrieira/radio-lrr-iv/internal/sequence"
)

// ErrInvalidTransition indicates an invalid slot state transition was attempted.
var ErrInvalidTransition = errors.New("invalid slot transition")

// SlotState is the preparation state of a job slot.
type SlotState string

const (
	SlotEmpty   SlotState = "empty"
	SlotLoading SlotState = "loading"
	SlotReady   SlotState = "ready"
)

type slot struct {
	state   SlotState
	program string
	token   preload.Token
	job     *sequence.Job
}

// isValidTransition checks if a slot state transition is allowed.
func isValidTransition(from, to SlotState) bool {
	validTransitions := map[SlotState][]SlotState{
		SlotEmpty: {
			SlotLoading,
		},
		SlotLoading: {
			SlotEmpty,
			SlotLoading,
			SlotReady,
		},
		SlotReady: {
			SlotEmpty,
		},
	}

	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// setSlot is the only place slot state changes. Callers hold s.mu.
func (s *Scheduler) setSlot(role preload.Slot, to slot) error {
	cur := &s.slots[role]
	if !isValidTransition(cur.state, to.state) {
		return fmt.Errorf("%w: %s slot %s -> %s", ErrInvalidTransition, role, cur.state, to.state)
	}
	s.logger.Debug().
		Str("slot", role.String()).
		Str("from", string(cur.state)).
		Str("to", string(to.state)).
		Str("program", to.program).
		Uint64("epoch", to.token.Epoch).
		Msg("slot transition")
	*cur = to
	return nil
}

// clearSlot cancels any load in flight for role and empties it.
func (s *Scheduler) clearSlot(role preload.Slot) {
	if s.slots[role].state == SlotEmpty {
		return
	}
	s.preloader.Epochs().Cancel(role)
	if err := s.setSlot(role, slot{state: SlotEmpty}); err != nil {
		s.logger.Error().Err(err).Msg("clear slot")
	}
}
