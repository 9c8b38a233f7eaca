package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/catalog"
	"github.com/luizarrieira/radio-lrr-iv/internal/config"
	"github.com/luizarrieira/radio-lrr-iv/internal/logbuffer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment:       "test",
		HTTPBind:          "127.0.0.1",
		HTTPPort:          8080,
		CatalogPath:       "../../configs/programs.yaml",
		DurationsKey:      "duracoes_narracoes.json",
		InitialProgram:    "ivbase",
		DefaultCover:      "capas/default.jpg",
		StorageBackend:    config.StorageFilesystem,
		MediaRoot:         t.TempDir(),
		EventBackend:      config.EventsNone,
		AudioOutput:       config.AudioNull,
		AudioSampleRate:   44100,
		AudioBufferMs:     100,
		LockoutWindow:     30 * time.Second,
		StarvationBackoff: 50 * time.Millisecond,
		Seed:              7,
		WeatherFallback:   "Clear",
	}
}

func TestNewServesStationRoutes(t *testing.T) {
	srv, err := New(testConfig(t), logbuffer.New(100), zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer srv.Close()

	if got := srv.HTTPServer().Addr; got != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr %q", got)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/status", http.StatusOK},
		{"/api/v1/programs", http.StatusOK},
		{"/api/v1/history", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
			if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Fatal("security headers missing")
			}
		})
	}

	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	var status map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["program"] != "ivbase" || status["started"] != false {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestNewRejectsMissingCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = "missing.yaml"
	if _, err := New(cfg, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected catalog error")
	}
}

func TestNewRejectsUnknownInitialProgram(t *testing.T) {
	cfg := testConfig(t)
	cfg.InitialProgram = "jazz"
	if _, err := New(cfg, nil, zerolog.Nop()); !errors.Is(err, catalog.ErrUnknownProgram) {
		t.Fatalf("expected ErrUnknownProgram, got %v", err)
	}
}

func TestStartAndClose(t *testing.T) {
	srv, err := New(testConfig(t), logbuffer.New(100), zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !srv.scheduler.Status().Started {
		t.Fatal("scheduler not started")
	}

	closed := make(chan error, 1)
	go func() { closed <- srv.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("close did not return")
	}
	select {
	case <-srv.scheduler.Done():
	default:
		t.Fatal("playback loop still running after close")
	}
}
