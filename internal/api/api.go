/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the station control surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/luizarrieira/radio-lrr-iv/internal/auth"
	"github.com/luizarrieira/radio-lrr-iv/internal/catalog"
	"github.com/luizarrieira/radio-lrr-iv/internal/events"
	"github.com/luizarrieira/radio-lrr-iv/internal/logbuffer"
	"github.com/luizarrieira/radio-lrr-iv/internal/scheduler"
	"github.com/luizarrieira/radio-lrr-iv/internal/scheduler/state"
)

// Station is the scheduler as seen by the control surface.
type Station interface {
	Start(ctx context.Context) error
	RequestSwitch(target string) (scheduler.SwitchOutcome, error)
	Status() scheduler.Status
	History() []state.RecentPlay
}

// Programs lists the catalog.
type Programs interface {
	Summaries() []catalog.Summary
}

// CoverSource reports the cover on display.
type CoverSource interface {
	Current() string
}

// BufferStats reports the decoded buffer cache size.
type BufferStats interface {
	Len() int
}

// LogSource serves buffered log lines.
type LogSource interface {
	Query(q logbuffer.Query) []logbuffer.Entry
	Stats() logbuffer.Stats
}

// Config wires the API.
type Config struct {
	Station   Station
	Programs  Programs
	Bus       *events.Bus
	Covers    CoverSource
	Buffers   BufferStats
	Logs      LogSource
	JWTSecret []byte
	// RunContext bounds the playback loop started through the API.
	RunContext context.Context
	Logger     zerolog.Logger
}

// API exposes HTTP handlers for the station.
type API struct {
	station   Station
	programs  Programs
	bus       *events.Bus
	covers    CoverSource
	buffers   BufferStats
	logs      LogSource
	jwtSecret []byte
	runCtx    context.Context
	logger    zerolog.Logger
}

// New creates the API router.
func New(cfg Config) *API {
	if cfg.RunContext == nil {
		cfg.RunContext = context.Background()
	}
	return &API{
		station:   cfg.Station,
		programs:  cfg.Programs,
		bus:       cfg.Bus,
		covers:    cfg.Covers,
		buffers:   cfg.Buffers,
		logs:      cfg.Logs,
		jwtSecret: cfg.JWTSecret,
		runCtx:    cfg.RunContext,
		logger:    cfg.Logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers API routes on the router.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", a.handleStatus)
		r.Get("/programs", a.handlePrograms)
		r.Get("/history", a.handleHistory)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))
			pr.Use(auth.RequireRole(a.jwtSecret, auth.RoleOperator))
			pr.Post("/start", a.handleStart)
			pr.Post("/program", a.handleProgram)
			if a.logs != nil {
				pr.Get("/logs", a.handleLogs)
			}
		})
	})

	r.Group(func(wr chi.Router) {
		wr.Use(auth.Middleware(a.jwtSecret))
		wr.Get(auth.EventsPath, a.handleEvents)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	scheduler.Status
	Cover         string `json:"cover,omitempty"`
	BufferEntries int    `json:"buffer_entries"`
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: a.station.Status()}
	if a.covers != nil {
		resp.Cover = a.covers.Current()
	}
	if a.buffers != nil {
		resp.BufferEntries = a.buffers.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePrograms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.programs.Summaries())
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.station.History())
}

func (a *API) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := a.station.Start(a.runCtx); err != nil {
		if errors.Is(err, scheduler.ErrNoProgram) {
			writeError(w, http.StatusConflict, "no_program_selected")
			return
		}
		a.logger.Error().Err(err).Str("operator", auth.Operator(r.Context())).Msg("start station failed")
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	writeJSON(w, http.StatusAccepted, a.station.Status())
}

type switchRequest struct {
	Program string `json:"program"`
}

type switchResponse struct {
	Outcome scheduler.SwitchOutcome `json:"outcome"`
	Program string                  `json:"program"`
}

func (a *API) handleProgram(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Program == "" {
		writeError(w, http.StatusBadRequest, "program_required")
		return
	}

	operator := auth.Operator(r.Context())
	outcome, err := a.station.RequestSwitch(req.Program)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownProgram) {
			writeError(w, http.StatusNotFound, "unknown_program")
			return
		}
		a.logger.Warn().Err(err).Str("program", req.Program).Str("operator", operator).Msg("program switch failed")
		writeError(w, http.StatusUnprocessableEntity, "switch_failed")
		return
	}
	a.logger.Info().
		Str("program", req.Program).
		Str("outcome", string(outcome)).
		Str("operator", operator).
		Msg("program switch requested")
	writeJSON(w, http.StatusAccepted, switchResponse{Outcome: outcome, Program: req.Program})
}

type logsResponse struct {
	Stats   logbuffer.Stats   `json:"stats"`
	Entries []logbuffer.Entry `json:"entries"`
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := logbuffer.Query{
		Level:     q.Get("level"),
		Component: q.Get("component"),
		Program:   q.Get("program"),
		Search:    q.Get("search"),
		Limit:     200,
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		query.Limit = limit
	}
	writeJSON(w, http.StatusOK, logsResponse{Stats: a.logs.Stats(), Entries: a.logs.Query(query)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
