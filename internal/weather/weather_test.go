/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package weather

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestPickFile(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	tests := []struct {
		condition string
		hour      int
		pattern   string
		ok        bool
	}{
		{"Clouds", 10, `^weather/CLOUD_(0[1-9]|1[01])\.wav$`, true},
		{"Mist", 3, `^weather/FOG_(0[1-9]|1[0-2])\.wav$`, true},
		{"Fog", 14, `^weather/FOG_`, true},
		{"Rain", 22, `^weather/RAIN_`, true},
		{"Clear", 5, `^weather/SUN_`, true},
		{"Clear", 18, `^weather/SUN_`, true},
		{"Clear", 19, ``, false},
		{"Clear", 4, ``, false},
		{"Breeze", 12, `^weather/WIND_`, true},
		{"Snow", 12, ``, false},
		{"", 12, ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				got, ok := PickFile(tt.condition, tt.hour, rnd)
				if ok != tt.ok {
					t.Fatalf("PickFile(%q, %d) ok = %v, want %v", tt.condition, tt.hour, ok, tt.ok)
				}
				if ok && !regexp.MustCompile(tt.pattern).MatchString(got) {
					t.Fatalf("PickFile(%q, %d) = %q, want match %s", tt.condition, tt.hour, got, tt.pattern)
				}
			}
		})
	}
}

func TestFilesCoversEveryFamily(t *testing.T) {
	if got := len(Files()); got != 11+12+11+12+11 {
		t.Fatalf("Files() returned %d entries", got)
	}
}

func TestPollerRefresh(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("q") != "Maringa,BR" || r.URL.Query().Get("appid") != "key" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weather":[{"main":"Rain","description":"light rain"}]}`))
	}))
	defer srv.Close()

	p := NewPoller(Config{APIKey: "key", City: "Maringa,BR", BaseURL: srv.URL}, nil, zerolog.Nop())
	if p.Current() != "Clear" {
		t.Fatalf("expected fallback before first refresh, got %q", p.Current())
	}
	p.Refresh(context.Background())
	if p.Current() != "Rain" {
		t.Fatalf("Current() = %q, want Rain", p.Current())
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one request, got %d", calls.Load())
	}
}

func TestPollerFallsBackOnPermanentError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewPoller(Config{APIKey: "bad", City: "Maringa,BR", BaseURL: srv.URL, Fallback: "Clouds"}, nil, zerolog.Nop())
	p.set("Rain")
	p.Refresh(context.Background())
	if p.Current() != "Clouds" {
		t.Fatalf("Current() = %q, want fallback Clouds", p.Current())
	}
	if calls.Load() != 1 {
		t.Fatalf("permanent errors should not be retried, got %d calls", calls.Load())
	}
}

func TestStaticProvider(t *testing.T) {
	if Static("Fog").Current() != "Fog" {
		t.Fatal("static provider returned wrong condition")
	}
}
