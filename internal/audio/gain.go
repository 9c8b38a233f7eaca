/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"sync"
	"time"

	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
)

// Ramp is a clock-driven linear gain. Ramps always start from the value at
// the moment they are scheduled.
type Ramp struct {
	clock clock.Clock

	mu     sync.Mutex
	from   float64
	to     float64
	start  time.Time
	length time.Duration
}

// NewRamp returns a gain fixed at v.
func NewRamp(clk clock.Clock, v float64) *Ramp {
	return &Ramp{clock: clk, from: v, to: v}
}

// Value returns the gain at the current clock time.
func (r *Ramp) Value() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.valueAt(r.clock.Now())
}

// RampTo starts a ramp from the current value to v.
func (r *Ramp) RampTo(v float64, over time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	r.from = r.valueAt(now)
	r.to = v
	r.start = now
	r.length = over
}

// CancelScheduled stops any ramp in progress.
func (r *Ramp) CancelScheduled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.valueAt(r.clock.Now())
	r.from, r.to = v, v
	r.length = 0
}

// Target returns the value the gain is heading to.
func (r *Ramp) Target() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.to
}

func (r *Ramp) valueAt(t time.Time) float64 {
	if r.length <= 0 {
		return r.to
	}
	elapsed := t.Sub(r.start)
	if elapsed <= 0 {
		return r.from
	}
	if elapsed >= r.length {
		return r.to
	}
	frac := float64(elapsed) / float64(r.length)
	return r.from + (r.to-r.from)*frac
}
