/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package executor

import (
	"sync"

	"github.com/luizarrieira/radio-lrr-iv/internal/events"
)

// CoverBoard tracks the cover on display and publishes changes.
type CoverBoard struct {
	events events.Publisher

	mu      sync.RWMutex
	current string
}

// NewCoverBoard creates a presenter publishing to pub.
func NewCoverBoard(pub events.Publisher, initial string) *CoverBoard {
	if pub == nil {
		pub = events.Nop{}
	}
	return &CoverBoard{events: pub, current: initial}
}

// ShowCover implements Presenter.
func (c *CoverBoard) ShowCover(ref string) {
	c.mu.Lock()
	changed := c.current != ref
	c.current = ref
	c.mu.Unlock()

	if changed {
		c.events.Publish(events.EventCover, events.Payload{"cover": ref})
	}
}

// Current returns the cover on display.
func (c *CoverBoard) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}
