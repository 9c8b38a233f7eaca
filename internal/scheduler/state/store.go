/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package state

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of plays kept when none is given.
const DefaultCapacity = 50

// RecentPlay stores metadata about one executed job.
type RecentPlay struct {
	JobID    string    `json:"job_id"`
	Program  string    `json:"program"`
	Pattern  string    `json:"pattern"`
	Track    string    `json:"track,omitempty"`
	Played   int       `json:"played"`
	Skipped  int       `json:"skipped"`
	PlayedAt time.Time `json:"played_at"`
}

// Store keeps the most recent plays in memory, oldest first.
type Store struct {
	mu       sync.RWMutex
	capacity int
	recent   []RecentPlay
}

// NewStore creates a history store holding at most capacity plays.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, recent: make([]RecentPlay, 0, capacity)}
}

// Add registers a play, evicting the oldest once full.
func (s *Store) Add(play RecentPlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) == s.capacity {
		copy(s.recent, s.recent[1:])
		s.recent = s.recent[:len(s.recent)-1]
	}
	s.recent = append(s.recent, play)
}

// Recent returns snapshot of tracked plays.
func (s *Store) Recent() []RecentPlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RecentPlay, len(s.recent))
	copy(out, s.recent)
	return out
}

// Prune removes entries older than cutoff.
func (s *Store) Prune(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.recent[:0]
	for _, rp := range s.recent {
		if rp.PlayedAt.After(cutoff) {
			filtered = append(filtered, rp)
		}
	}
	s.recent = filtered
}
