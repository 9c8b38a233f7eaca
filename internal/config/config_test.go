package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RADIO_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StorageBackend != StorageFilesystem {
		t.Fatalf("unexpected storage backend: %q", cfg.StorageBackend)
	}
	if cfg.InitialProgram != "ivbase" {
		t.Fatalf("unexpected initial program: %q", cfg.InitialProgram)
	}
	if cfg.LockoutWindow != 30*time.Second {
		t.Fatalf("unexpected lockout window: %s", cfg.LockoutWindow)
	}
	if cfg.StarvationBackoff != 2*time.Second {
		t.Fatalf("unexpected starvation backoff: %s", cfg.StarvationBackoff)
	}
	if cfg.HTTPAddr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTPAddr())
	}
}

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("RADIO_INITIAL_PROGRAM", "tlad")
	t.Setenv("RADIO_LOCKOUT_SECONDS", "12")
	t.Setenv("RADIO_AUDIO_OUTPUT", "null")
	t.Setenv("OPENWEATHER_API_KEY", "owm-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.InitialProgram != "tlad" {
		t.Fatalf("unexpected initial program: %q", cfg.InitialProgram)
	}
	if cfg.LockoutWindow != 12*time.Second {
		t.Fatalf("unexpected lockout window: %s", cfg.LockoutWindow)
	}
	if cfg.AudioOutput != AudioNull {
		t.Fatalf("unexpected audio output: %q", cfg.AudioOutput)
	}
	if cfg.WeatherAPIKey != "owm-key" {
		t.Fatalf("fallback key not honored: %q", cfg.WeatherAPIKey)
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "legacy")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.LegacyEnvWarnings) != 2 {
		t.Fatalf("expected 2 legacy env warnings, got %v", cfg.LegacyEnvWarnings)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage backend", map[string]string{"RADIO_STORAGE_BACKEND": "ftp"}},
		{"s3 without bucket", map[string]string{"RADIO_STORAGE_BACKEND": "s3"}},
		{"unknown audio output", map[string]string{"RADIO_AUDIO_OUTPUT": "alsa"}},
		{"negative lockout", map[string]string{"RADIO_LOCKOUT_SECONDS": "-1"}},
		{"port out of range", map[string]string{"RADIO_HTTP_PORT": "70000"}},
		{"production without jwt key", map[string]string{"RADIO_ENV": "production"}},
		{"unknown event backend", map[string]string{"RADIO_EVENT_BACKEND": "kafka"}},
		{"nats backend without url", map[string]string{"RADIO_EVENT_BACKEND": "nats"}},
		{"redis backend without addr", map[string]string{"RADIO_EVENT_BACKEND": "redis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected config load to fail")
			}
		})
	}
}

func TestLoadS3Backend(t *testing.T) {
	t.Setenv("RADIO_STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "radio-media")
	t.Setenv("RADIO_S3_USE_PATH_STYLE", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.S3Bucket != "radio-media" || !cfg.S3UsePathStyle {
		t.Fatalf("unexpected s3 config: bucket=%q pathStyle=%v", cfg.S3Bucket, cfg.S3UsePathStyle)
	}
}

func TestLoadEventBackend(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want EventBackend
	}{
		{"default", nil, EventsNone},
		{"nats url selects nats", map[string]string{"NATS_URL": "nats://localhost:4222"}, EventsNATS},
		{"explicit none wins", map[string]string{"NATS_URL": "nats://localhost:4222", "RADIO_EVENT_BACKEND": "none"}, EventsNone},
		{"redis", map[string]string{"RADIO_EVENT_BACKEND": "redis", "RADIO_REDIS_ADDR": "localhost:6379"}, EventsRedis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("load config: %v", err)
			}
			if cfg.EventBackend != tt.want {
				t.Fatalf("expected backend %q, got %q", tt.want, cfg.EventBackend)
			}
		})
	}
}
