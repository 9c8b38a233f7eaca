/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer keeps the most recent log lines in memory so operators
// can read them from the control API.
package logbuffer

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is used when New gets a non-positive capacity.
const DefaultCapacity = 2000

// Entry is one decoded log line.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Program   string         `json:"program,omitempty"`
	JobID     string         `json:"job_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Buffer is a ring of log entries.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	head     int
	count    int
}

// New creates a buffer holding up to capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Add appends an entry, overwriting the oldest when full.
func (b *Buffer) Add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
}

// All returns entries oldest first.
func (b *Buffer) All() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Entry, b.count)
	start := 0
	if b.count == b.capacity {
		start = b.head
	}
	for i := 0; i < b.count; i++ {
		result[i] = b.entries[(start+i)%b.capacity]
	}
	return result
}

// Query filters buffered entries.
type Query struct {
	Level     string // exact level (debug, info, warn, error)
	Component string
	Program   string
	Search    string // case-insensitive match on message and string fields
	Limit     int    // newest N after filtering; 0 keeps all
}

// Query returns matching entries, newest first.
func (b *Buffer) Query(q Query) []Entry {
	all := b.All()
	search := strings.ToLower(q.Search)

	var out []Entry
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if q.Level != "" && e.Level != q.Level {
			continue
		}
		if q.Component != "" && e.Component != q.Component {
			continue
		}
		if q.Program != "" && e.Program != q.Program {
			continue
		}
		if search != "" && !e.matches(search) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

func (e Entry) matches(lowered string) bool {
	if strings.Contains(strings.ToLower(e.Message), lowered) {
		return true
	}
	for _, v := range e.Fields {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), lowered) {
			return true
		}
	}
	return false
}

// Stats summarises the buffer.
type Stats struct {
	Capacity   int            `json:"capacity"`
	Count      int            `json:"count"`
	LevelCount map[string]int `json:"level_count"`
	Components []string       `json:"components"`
}

// Stats counts entries by level and lists the components seen.
func (b *Buffer) Stats() Stats {
	all := b.All()
	stats := Stats{
		Capacity:   b.capacity,
		Count:      len(all),
		LevelCount: make(map[string]int),
	}
	seen := make(map[string]bool)
	for _, e := range all {
		stats.LevelCount[e.Level]++
		if e.Component != "" && !seen[e.Component] {
			seen[e.Component] = true
			stats.Components = append(stats.Components, e.Component)
		}
	}
	sort.Strings(stats.Components)
	return stats
}

// Writer decodes zerolog JSON lines into the buffer.
type Writer struct {
	buffer   *Buffer
	fallback io.Writer
}

// NewWriter creates a writer feeding buffer. fallback, when set, receives
// every line unchanged.
func NewWriter(buffer *Buffer, fallback io.Writer) *Writer {
	return &Writer{buffer: buffer, fallback: fallback}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err == nil {
		w.buffer.Add(decode(raw))
	}
	if w.fallback != nil {
		return w.fallback.Write(p)
	}
	return len(p), nil
}

func decode(raw map[string]any) Entry {
	e := Entry{Timestamp: time.Now(), Fields: make(map[string]any)}
	take := func(key string) string {
		s, _ := raw[key].(string)
		delete(raw, key)
		return s
	}
	e.Level = take("level")
	e.Message = take("message")
	e.Component = take("component")
	e.Program = take("program")
	e.JobID = take("job_id")

	switch ts := raw["time"].(type) {
	case float64:
		e.Timestamp = time.Unix(int64(ts), 0)
	case string:
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
	}
	delete(raw, "time")

	for k, v := range raw {
		e.Fields[k] = v
	}
	return e
}
