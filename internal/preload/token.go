/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package preload

import (
	"fmt"
	"sync/atomic"
)

// Slot identifies one of the two job slots.
type Slot int

const (
	SlotNormal Slot = iota
	SlotPending
)

func (s Slot) String() string {
	switch s {
	case SlotNormal:
		return "normal"
	case SlotPending:
		return "pending"
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// Token authorizes one pipeline run for a slot.
type Token struct {
	Slot  Slot
	Epoch uint64
}

// Epochs holds the active epoch of each slot.
type Epochs struct {
	active [2]atomic.Uint64
}

// Issue invalidates any outstanding token for slot and returns a new one.
func (e *Epochs) Issue(slot Slot) Token {
	return Token{Slot: slot, Epoch: e.active[slot].Add(1)}
}

// Cancel invalidates any outstanding token for slot.
func (e *Epochs) Cancel(slot Slot) {
	e.active[slot].Add(1)
}

// Valid reports whether t is still the active token of its slot.
func (e *Epochs) Valid(t Token) bool {
	return e.active[t.Slot].Load() == t.Epoch
}

// Current returns the active epoch of slot.
func (e *Epochs) Current(slot Slot) uint64 {
	return e.active[slot].Load()
}
