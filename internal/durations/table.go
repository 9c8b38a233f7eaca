/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package durations holds the narration duration table: clip base name to
// length in milliseconds.
package durations

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"github.com/luizarrieira/radio-lrr-iv/internal/storage"
)

// Table maps a file base name to its duration in milliseconds. It is read-only
// after construction.
type Table struct {
	entries map[string]int64
}

// NewTable builds a table from entries, dropping non-positive durations.
func NewTable(entries map[string]int64) *Table {
	t := &Table{entries: make(map[string]int64, len(entries))}
	for name, ms := range entries {
		if ms > 0 {
			t.entries[name] = ms
		}
	}
	return t
}

// Parse decodes the JSON form `{"FILE.wav": 1234}`.
func Parse(data []byte) (*Table, error) {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode duration table: %w", err)
	}
	entries := make(map[string]int64, len(raw))
	for name, ms := range raw {
		entries[name] = int64(ms + 0.5)
	}
	return NewTable(entries), nil
}

// Load fetches and parses the table stored under key.
func Load(ctx context.Context, store storage.ObjectStore, key string) (*Table, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch duration table: %w", err)
	}
	return Parse(data)
}

// Lookup returns the duration for a content path, keyed by its base name.
func (t *Table) Lookup(p string) (int64, bool) {
	if t == nil {
		return 0, false
	}
	ms, ok := t.entries[path.Base(p)]
	return ms, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// MarshalJSON writes the table with sorted keys.
func (t *Table) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := []byte{'{'}
	for i, name := range names {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = fmt.Appendf(buf, "%d", t.entries[name])
	}
	return append(buf, '}'), nil
}
