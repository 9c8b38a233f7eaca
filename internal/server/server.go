/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/luizarrieira/radio-lrr-iv/internal/api"
	"github.com/luizarrieira/radio-lrr-iv/internal/audio"
	"github.com/luizarrieira/radio-lrr-iv/internal/cache"
	"github.com/luizarrieira/radio-lrr-iv/internal/catalog"
	"github.com/luizarrieira/radio-lrr-iv/internal/clock"
	"github.com/luizarrieira/radio-lrr-iv/internal/config"
	"github.com/luizarrieira/radio-lrr-iv/internal/durations"
	"github.com/luizarrieira/radio-lrr-iv/internal/eventbus"
	"github.com/luizarrieira/radio-lrr-iv/internal/events"
	"github.com/luizarrieira/radio-lrr-iv/internal/executor"
	"github.com/luizarrieira/radio-lrr-iv/internal/logbuffer"
	"github.com/luizarrieira/radio-lrr-iv/internal/preload"
	"github.com/luizarrieira/radio-lrr-iv/internal/scheduler"
	"github.com/luizarrieira/radio-lrr-iv/internal/scheduler/state"
	"github.com/luizarrieira/radio-lrr-iv/internal/sequence"
	"github.com/luizarrieira/radio-lrr-iv/internal/storage"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
	"github.com/luizarrieira/radio-lrr-iv/internal/weather"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	logBuffer *logbuffer.Buffer
	bus       *events.Bus
	clock     clock.Clock
	cache     *cache.Cache
	store     storage.ObjectStore
	catalog   *catalog.Catalog
	weather   *weather.Poller
	engine    audio.Player
	covers    *executor.CoverBoard
	scheduler *scheduler.Scheduler
	forwarder *eventbus.Forwarder
	api       *api.API

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New wires the station and its HTTP surface. Background workers start
// immediately; playback starts with Start or POST /api/v1/start.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "radio-lrr-api")
	})
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for WebSocket connections
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	bgCtx, bgCancel := context.WithCancel(context.Background())
	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		logBuffer: logBuf,
		bus:       events.NewBus(),
		clock:     clock.Real(),
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
	}

	if err := srv.initDependencies(); err != nil {
		bgCancel()
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: srv.router,
		// Keep header deadline to protect against slowloris.
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       0,
		// WriteTimeout set to 0 for the event stream; the middleware timeout covers the rest
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	ctx, cancel := context.WithTimeout(s.bgCtx, 30*time.Second)
	defer cancel()

	inner, err := storage.New(ctx, s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if s.cfg.RedisAddr != "" {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		if s.cfg.RedisTTL > 0 {
			cacheCfg.ObjectTTL = s.cfg.RedisTTL
		}
		s.cache, err = cache.New(cacheCfg, s.logger)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	} else {
		s.cache = cache.Disabled(s.logger)
	}
	s.DeferClose(s.cache.Close)
	s.store = cache.NewStore(inner, s.cache, s.logger)

	table, err := durations.Load(ctx, s.store, s.cfg.DurationsKey)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.cfg.DurationsKey).Msg("duration table unavailable, narrations will be skipped")
		table = durations.NewTable(nil)
	}
	s.logger.Info().Int("entries", table.Len()).Msg("duration table loaded")

	s.catalog, err = catalog.LoadFile(s.cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if !s.catalog.Has(s.cfg.InitialProgram) {
		return fmt.Errorf("initial program: %w: %s", catalog.ErrUnknownProgram, s.cfg.InitialProgram)
	}

	var wx weather.Provider = weather.Static(s.cfg.WeatherFallback)
	if s.cfg.WeatherAPIKey != "" {
		s.weather = weather.NewPoller(weather.Config{
			APIKey:   s.cfg.WeatherAPIKey,
			City:     s.cfg.WeatherCity,
			Refresh:  s.cfg.WeatherRefresh,
			Fallback: s.cfg.WeatherFallback,
		}, s.cache, s.logger)
		wx = s.weather
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	composer := sequence.NewComposer(s.catalog, table, wx, s.clock, rand.New(rand.NewPCG(uint64(seed), uint64(seed)+1)), s.logger)

	pipeline := preload.NewPipeline(audio.NewStoreLoader(s.store, s.logger), preload.NewCache(), &preload.Epochs{}, s.logger)

	s.engine, err = s.newEngine()
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	s.DeferClose(s.engine.Close)

	s.covers = executor.NewCoverBoard(s.bus, s.cfg.DefaultCover)
	exec := executor.New(executor.Config{
		Player:       s.engine,
		Buffers:      pipeline.Cache(),
		Clock:        s.clock,
		Presenter:    s.covers,
		Events:       s.bus,
		DefaultCover: s.cfg.DefaultCover,
		Logger:       s.logger,
	})

	s.scheduler = scheduler.New(scheduler.Config{
		Composer:          composer,
		Preloader:         pipeline,
		Player:            exec,
		Programs:          s.catalog,
		Clock:             s.clock,
		Events:            s.bus,
		History:           state.NewStore(state.DefaultCapacity),
		InitialProgram:    s.cfg.InitialProgram,
		Lockout:           s.cfg.LockoutWindow,
		StarvationBackoff: s.cfg.StarvationBackoff,
		Logger:            s.logger,
	})

	apiCfg := api.Config{
		Station:    s.scheduler,
		Programs:   s.catalog,
		Bus:        s.bus,
		Covers:     s.covers,
		Buffers:    pipeline.Cache(),
		JWTSecret:  []byte(s.cfg.JWTSigningKey),
		RunContext: s.bgCtx,
		Logger:     s.logger,
	}
	if s.logBuffer != nil {
		apiCfg.Logs = s.logBuffer
	}
	s.api = api.New(apiCfg)

	sink, err := s.newEventSink()
	if err != nil {
		return fmt.Errorf("event backend: %w", err)
	}
	if sink != nil {
		s.forwarder = eventbus.NewForwarder(s.bus, sink, eventbus.NodeID(s.cfg.NodeID), s.clock, s.logger)
	}

	return nil
}

func (s *Server) newEngine() (audio.Player, error) {
	switch s.cfg.AudioOutput {
	case config.AudioNull:
		return audio.NewNullEngine(s.clock, s.logger), nil
	default:
		return audio.NewSpeakerEngine(beep.SampleRate(s.cfg.AudioSampleRate), s.cfg.AudioBuffer(), s.clock, s.logger)
	}
}

// newEventSink returns nil when events stay in process.
func (s *Server) newEventSink() (eventbus.Sink, error) {
	switch s.cfg.EventBackend {
	case config.EventsNATS:
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsCfg.Token = s.cfg.NATSToken
		natsCfg.Subject = s.cfg.NATSSubject
		return eventbus.NewNATSSink(natsCfg, s.logger)
	case config.EventsRedis:
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		redisCfg.Channel = s.cfg.RedisChannel
		return eventbus.NewRedisSink(redisCfg, s.clock, s.logger), nil
	default:
		return nil, nil
	}
}

// HTTPServer exposes the configured HTTP server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// LogBuffer returns the buffer recent log lines are kept in.
func (s *Server) LogBuffer() *logbuffer.Buffer {
	return s.logBuffer
}

// Start begins playback of the initial program.
func (s *Server) Start() error {
	if err := s.scheduler.Start(s.bgCtx); err != nil {
		return fmt.Errorf("start station: %w", err)
	}
	s.logger.Info().Str("program", s.scheduler.Status().Program).Msg("station started")
	return nil
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	if s.weather != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.weather.Run(s.bgCtx)
		}()
	}

	if s.forwarder != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.forwarder.Run(s.bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("event forwarder stopped")
			}
		}()
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	if s.scheduler != nil && s.scheduler.Status().Started {
		select {
		case <-s.scheduler.Done():
		case <-time.After(5 * time.Second):
			s.logger.Warn().Msg("playback loop did not stop in time")
		}
	}
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Handle("/metrics", telemetry.Handler())
	s.api.Routes(s.router)
}
