/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package drawqueue implements shuffle-and-drain queues: every item of a pool is
// drawn once, in random order, before any item repeats.
package drawqueue

import "math/rand/v2"

// Queue draws items from a fixed pool. It is not safe for concurrent use.
type Queue[T any] struct {
	pool    []T
	pending []T
	rnd     *rand.Rand
}

// New creates a queue over a copy of pool.
func New[T any](pool []T, rnd *rand.Rand) *Queue[T] {
	return &Queue[T]{pool: append([]T(nil), pool...), rnd: rnd}
}

// Next pops the next item, reshuffling the pool when the current round is
// exhausted. It reports false only when the pool is empty.
func (q *Queue[T]) Next() (T, bool) {
	var zero T
	if len(q.pool) == 0 {
		return zero, false
	}
	if len(q.pending) == 0 {
		q.refill()
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	return item, true
}

// Remaining returns how many items are left in the current round.
func (q *Queue[T]) Remaining() int {
	return len(q.pending)
}

// Len returns the pool size.
func (q *Queue[T]) Len() int {
	return len(q.pool)
}

// Reset discards the current round; the next draw starts a fresh shuffle.
func (q *Queue[T]) Reset() {
	q.pending = nil
}

func (q *Queue[T]) refill() {
	q.pending = append(q.pending[:0:0], q.pool...)
	q.rnd.Shuffle(len(q.pending), func(i, j int) {
		q.pending[i], q.pending[j] = q.pending[j], q.pending[i]
	})
}
