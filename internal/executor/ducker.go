/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package executor

import (
	"sync"
	"time"

	"github.com/luizarrieira/radio-lrr-iv/internal/audio"
	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
)

// Ducking parameters.
const (
	DuckLevel    = 0.5
	DuckRamp     = 100 * time.Millisecond
	ReleaseDelay = 200 * time.Millisecond
	ReleaseRamp  = 100 * time.Millisecond
	DuckLead     = 40 * time.Millisecond
)

// Ducker lowers the music gain while at least one narration is active.
type Ducker struct {
	gain  audio.Gain
	clock clock.Clock

	mu      sync.Mutex
	active  int
	release clock.Timer
	gen     uint64
}

// NewDucker creates a ducker driving gain.
func NewDucker(gain audio.Gain, clk clock.Clock) *Ducker {
	return &Ducker{gain: gain, clock: clk}
}

// Begin registers a narration. The first one ramps the gain down and any
// pending release is cancelled.
func (d *Ducker) Begin() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.active++
	telemetry.DuckActive.Set(float64(d.active))
	if d.release != nil {
		d.release.Stop()
		d.release = nil
		d.gen++
	}
	if d.active == 1 {
		d.gain.RampTo(DuckLevel, DuckRamp)
	}
}

// End unregisters a narration. When none remain the gain is restored after
// the release delay.
func (d *Ducker) End() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active == 0 {
		return
	}
	d.active--
	telemetry.DuckActive.Set(float64(d.active))
	if d.active > 0 {
		return
	}

	d.gen++
	gen := d.gen
	d.release = d.clock.AfterFunc(ReleaseDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.gen != gen || d.active > 0 {
			return
		}
		d.release = nil
		d.gain.RampTo(1.0, ReleaseRamp)
	})
}

// Active returns the number of narrations holding the duck.
func (d *Ducker) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}
