/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package preload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/audio"
	"github.com/luizarrieira/radio-lrr-iv/internal/sequence"
)

type fakeBuffer time.Duration

func (b fakeBuffer) Duration() time.Duration { return time.Duration(b) }

type fakeLoader struct {
	mu     sync.Mutex
	fail   map[string]bool
	loads  []string
	onLoad func(path string)
}

func (l *fakeLoader) Load(_ context.Context, path string) (audio.Buffer, error) {
	l.mu.Lock()
	l.loads = append(l.loads, path)
	fail := l.fail[path]
	hook := l.onLoad
	l.mu.Unlock()

	if hook != nil {
		hook(path)
	}
	if fail {
		return nil, errors.New("fetch failed")
	}
	return fakeBuffer(time.Second), nil
}

func (l *fakeLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loads)
}

func testJob() *sequence.Job {
	return &sequence.Job{
		ID:      "job-1",
		Program: "base",
		Segments: []sequence.Segment{
			{Kind: sequence.KindID, Path: "ids/ID_01.wav"},
			{Kind: sequence.KindTrack, Path: "musicas/ONE.wav"},
		},
		Followup: &sequence.Segment{Kind: sequence.KindNews, Path: "news/NEWS_01.wav"},
	}
}

func TestEpochs(t *testing.T) {
	var e Epochs
	a := e.Issue(SlotNormal)
	p := e.Issue(SlotPending)
	if !e.Valid(a) || !e.Valid(p) {
		t.Fatal("fresh tokens must be valid")
	}

	b := e.Issue(SlotNormal)
	if e.Valid(a) {
		t.Fatal("issuing a new token must invalidate the previous one")
	}
	if !e.Valid(b) || !e.Valid(p) {
		t.Fatal("slots must be independent")
	}

	e.Cancel(SlotPending)
	if e.Valid(p) {
		t.Fatal("cancel must invalidate the slot token")
	}
	if b.Epoch <= a.Epoch {
		t.Fatal("epochs must increase")
	}
}

func TestCacheWriteOnce(t *testing.T) {
	c := NewCache()
	if !c.Insert("a.wav", fakeBuffer(time.Second)) {
		t.Fatal("first insert rejected")
	}
	if c.Insert("a.wav", fakeBuffer(2*time.Second)) {
		t.Fatal("second insert accepted")
	}
	buf, ok := c.Get("a.wav")
	if !ok || buf.Duration() != time.Second {
		t.Fatalf("Get = %v, %v", buf, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestRunLoadsEveryPath(t *testing.T) {
	loader := &fakeLoader{}
	p := NewPipeline(loader, NewCache(), &Epochs{}, zerolog.Nop())
	job := testJob()

	res, err := p.Run(context.Background(), job, p.Epochs().Issue(SlotNormal))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Loaded != 3 || res.Cached != 0 || len(res.Failed) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, path := range job.Paths() {
		if !p.Cache().Has(path) {
			t.Errorf("%s not cached", path)
		}
	}

	res, err = p.Run(context.Background(), job, p.Epochs().Issue(SlotNormal))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if res.Cached != 3 || loader.count() != 3 {
		t.Fatalf("second run reloaded cached paths: %+v, loads=%d", res, loader.count())
	}
}

func TestRunToleratesLoadFailures(t *testing.T) {
	loader := &fakeLoader{fail: map[string]bool{"ids/ID_01.wav": true}}
	p := NewPipeline(loader, NewCache(), &Epochs{}, zerolog.Nop())

	res, err := p.Run(context.Background(), testJob(), p.Epochs().Issue(SlotNormal))
	if err != nil {
		t.Fatalf("load failures must not fail the run: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "ids/ID_01.wav" {
		t.Fatalf("Failed = %v", res.Failed)
	}
	if res.Loaded != 2 {
		t.Fatalf("Loaded = %d, want 2", res.Loaded)
	}
	if p.Cache().Has("ids/ID_01.wav") {
		t.Fatal("failed path must not be cached")
	}
}

func TestRunCancelledMidway(t *testing.T) {
	epochs := &Epochs{}
	loader := &fakeLoader{}
	loader.onLoad = func(path string) {
		if path == "musicas/ONE.wav" {
			epochs.Issue(SlotNormal)
		}
	}
	p := NewPipeline(loader, NewCache(), epochs, zerolog.Nop())

	_, err := p.Run(context.Background(), testJob(), epochs.Issue(SlotNormal))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("pipeline kept loading after cancellation: %d loads", loader.count())
	}
	if !p.Cache().Has("ids/ID_01.wav") || !p.Cache().Has("musicas/ONE.wav") {
		t.Fatal("completed loads must stay cached")
	}
	if p.Cache().Has("news/NEWS_01.wav") {
		t.Fatal("path after cancellation must not be loaded")
	}
}

func TestRunWithStaleToken(t *testing.T) {
	epochs := &Epochs{}
	stale := epochs.Issue(SlotPending)
	epochs.Cancel(SlotPending)

	loader := &fakeLoader{}
	p := NewPipeline(loader, NewCache(), epochs, zerolog.Nop())
	if _, err := p.Run(context.Background(), testJob(), stale); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if loader.count() != 0 {
		t.Fatal("stale token must not load anything")
	}
}
