/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend selection.
type StorageBackend string

const (
	StorageFilesystem StorageBackend = "fs"
	StorageS3         StorageBackend = "s3"
)

// Audio output selection.
type AudioOutput string

const (
	AudioSpeaker AudioOutput = "speaker"
	AudioNull    AudioOutput = "null"
)

// Event fan-out backend selection.
type EventBackend string

const (
	EventsNone  EventBackend = "none"
	EventsNATS  EventBackend = "nats"
	EventsRedis EventBackend = "redis"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	// Content
	CatalogPath    string // YAML program catalog on local disk
	DurationsKey   string // Duration table key inside the object store
	InitialProgram string
	DefaultCover   string

	// Object storage for audio content
	StorageBackend    StorageBackend
	MediaRoot         string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, R2, etc.)
	S3Prefix          string
	S3UsePathStyle    bool

	// Shared byte cache in front of the object store; empty address disables it
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// Event fan-out; "none" keeps events in process
	EventBackend EventBackend
	NATSURL      string
	NATSSubject  string
	NATSToken    string
	RedisChannel string
	NodeID       string

	// Playback
	AudioOutput       AudioOutput
	AudioSampleRate   int
	AudioBufferMs     int
	LockoutWindow     time.Duration
	StarvationBackoff time.Duration
	Seed              int64

	// Weather lookup; empty key uses a fixed condition
	WeatherAPIKey   string
	WeatherCity     string
	WeatherRefresh  time.Duration
	WeatherFallback string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	JWTSigningKey     string
	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"RADIO_ENV", "LRR_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"RADIO_HTTP_BIND", "LRR_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"RADIO_HTTP_PORT", "LRR_HTTP_PORT"}, 8080),

		CatalogPath:    getEnvAny([]string{"RADIO_CATALOG_PATH", "LRR_CATALOG_PATH"}, "configs/programs.yaml"),
		DurationsKey:   getEnvAny([]string{"RADIO_DURATIONS_PATH", "LRR_DURATIONS_PATH"}, "duracoes_narracoes.json"),
		InitialProgram: getEnvAny([]string{"RADIO_INITIAL_PROGRAM", "LRR_INITIAL_PROGRAM"}, "ivbase"),
		DefaultCover:   getEnvAny([]string{"RADIO_DEFAULT_COVER", "LRR_DEFAULT_COVER"}, "capas/default.jpg"),

		StorageBackend:    StorageBackend(getEnvAny([]string{"RADIO_STORAGE_BACKEND", "LRR_STORAGE_BACKEND"}, string(StorageFilesystem))),
		MediaRoot:         getEnvAny([]string{"RADIO_MEDIA_ROOT", "LRR_MEDIA_ROOT"}, "./media"),
		S3AccessKeyID:     getEnvAny([]string{"RADIO_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"RADIO_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"RADIO_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"RADIO_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"RADIO_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3Prefix:          getEnvAny([]string{"RADIO_S3_PREFIX", "S3_PREFIX"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"RADIO_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		RedisAddr:     getEnvAny([]string{"RADIO_REDIS_ADDR", "LRR_REDIS_ADDR"}, ""),
		RedisPassword: getEnvAny([]string{"RADIO_REDIS_PASSWORD", "LRR_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"RADIO_REDIS_DB", "LRR_REDIS_DB"}, 0),
		RedisTTL:      time.Duration(getEnvIntAny([]string{"RADIO_REDIS_TTL_MINUTES", "LRR_REDIS_TTL_MINUTES"}, 24*60)) * time.Minute,

		NATSURL:     getEnvAny([]string{"RADIO_NATS_URL", "NATS_URL"}, ""),
		NATSSubject: getEnvAny([]string{"RADIO_NATS_SUBJECT", "NATS_SUBJECT"}, "radio.events"),
		NATSToken:   getEnvAny([]string{"RADIO_NATS_TOKEN", "NATS_TOKEN"}, ""),

		RedisChannel: getEnvAny([]string{"RADIO_REDIS_EVENTS_CHANNEL", "LRR_REDIS_EVENTS_CHANNEL"}, "radio:events"),
		NodeID:       getEnvAny([]string{"RADIO_NODE_ID", "LRR_NODE_ID"}, ""),

		AudioOutput:       AudioOutput(getEnvAny([]string{"RADIO_AUDIO_OUTPUT", "LRR_AUDIO_OUTPUT"}, string(AudioSpeaker))),
		AudioSampleRate:   getEnvIntAny([]string{"RADIO_AUDIO_SAMPLE_RATE", "LRR_AUDIO_SAMPLE_RATE"}, 44100),
		AudioBufferMs:     getEnvIntAny([]string{"RADIO_AUDIO_BUFFER_MS", "LRR_AUDIO_BUFFER_MS"}, 100),
		LockoutWindow:     time.Duration(getEnvIntAny([]string{"RADIO_LOCKOUT_SECONDS", "LRR_LOCKOUT_SECONDS"}, 30)) * time.Second,
		StarvationBackoff: time.Duration(getEnvIntAny([]string{"RADIO_STARVATION_BACKOFF_MS", "LRR_STARVATION_BACKOFF_MS"}, 2000)) * time.Millisecond,
		Seed:              int64(getEnvIntAny([]string{"RADIO_SEED", "LRR_SEED"}, 0)),

		WeatherAPIKey:   getEnvAny([]string{"RADIO_WEATHER_API_KEY", "OPENWEATHER_API_KEY"}, ""),
		WeatherCity:     getEnvAny([]string{"RADIO_WEATHER_CITY", "OPENWEATHER_CITY"}, "Maringa,BR"),
		WeatherRefresh:  time.Duration(getEnvIntAny([]string{"RADIO_WEATHER_REFRESH_MINUTES", "LRR_WEATHER_REFRESH_MINUTES"}, 10)) * time.Minute,
		WeatherFallback: getEnvAny([]string{"RADIO_WEATHER_FALLBACK", "LRR_WEATHER_FALLBACK"}, "Clear"),

		TracingEnabled:    getEnvBoolAny([]string{"RADIO_TRACING_ENABLED", "LRR_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"RADIO_OTLP_ENDPOINT", "LRR_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"RADIO_TRACING_SAMPLE_RATE", "LRR_TRACING_SAMPLE_RATE"}, 1.0),

		JWTSigningKey: getEnvAny([]string{"RADIO_JWT_SIGNING_KEY", "LRR_JWT_SIGNING_KEY"}, ""),
	}

	if cfg.StorageBackend != StorageFilesystem && cfg.StorageBackend != StorageS3 {
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	if cfg.StorageBackend == StorageS3 && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("RADIO_S3_BUCKET or S3_BUCKET must be provided for the s3 storage backend")
	}

	cfg.EventBackend = EventBackend(getEnvAny([]string{"RADIO_EVENT_BACKEND", "LRR_EVENT_BACKEND"}, ""))
	if cfg.EventBackend == "" {
		cfg.EventBackend = EventsNone
		if cfg.NATSURL != "" {
			cfg.EventBackend = EventsNATS
		}
	}
	switch cfg.EventBackend {
	case EventsNone:
	case EventsNATS:
		if cfg.NATSURL == "" {
			return nil, fmt.Errorf("RADIO_NATS_URL or NATS_URL must be provided for the nats event backend")
		}
	case EventsRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("RADIO_REDIS_ADDR must be provided for the redis event backend")
		}
	default:
		return nil, fmt.Errorf("unsupported event backend %q", cfg.EventBackend)
	}

	if cfg.AudioOutput != AudioSpeaker && cfg.AudioOutput != AudioNull {
		return nil, fmt.Errorf("unsupported audio output %q", cfg.AudioOutput)
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid http port %d", cfg.HTTPPort)
	}

	if cfg.LockoutWindow < 0 {
		return nil, fmt.Errorf("RADIO_LOCKOUT_SECONDS must not be negative")
	}

	if cfg.AudioSampleRate <= 0 || cfg.AudioBufferMs <= 0 {
		return nil, fmt.Errorf("audio sample rate and buffer size must be positive")
	}

	if cfg.InitialProgram == "" {
		return nil, fmt.Errorf("RADIO_INITIAL_PROGRAM must not be empty")
	}

	if strings.EqualFold(cfg.Environment, "production") && cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("RADIO_JWT_SIGNING_KEY or LRR_JWT_SIGNING_KEY must be provided in production")
	}
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":         "use RADIO_ENV (or LRR_ENV)",
		"JWT_SIGNING_KEY":     "use RADIO_JWT_SIGNING_KEY (or LRR_JWT_SIGNING_KEY)",
		"TRACING_ENABLED":     "use RADIO_TRACING_ENABLED (or LRR_TRACING_ENABLED)",
		"OTLP_ENDPOINT":       "use RADIO_OTLP_ENDPOINT (or LRR_OTLP_ENDPOINT)",
		"REDIS_ADDR":          "use RADIO_REDIS_ADDR (or LRR_REDIS_ADDR)",
		"PROGRAMACAO_INICIAL": "use RADIO_INITIAL_PROGRAM",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// HTTPAddr returns the control surface listen address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// AudioBuffer returns the output buffer length.
func (c *Config) AudioBuffer() time.Duration {
	return time.Duration(c.AudioBufferMs) * time.Millisecond
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
