/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package preload loads a job's content into the buffer cache ahead of playback.
package preload

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/luizarrieira/radio-lrr-iv/internal/audio"
	"github.com/luizarrieira/radio-lrr-iv/internal/sequence"
	"github.com/luizarrieira/radio-lrr-iv/internal/telemetry"
)

// ErrCancelled is returned when the run's token was superseded. It is not a failure.
var ErrCancelled = errors.New("preload cancelled")

// Result summarizes a completed run.
type Result struct {
	Job      *sequence.Job
	Loaded   int
	Cached   int
	Failed   []string
	Duration time.Duration
}

// Pipeline fills the cache for jobs.
type Pipeline struct {
	loader audio.Loader
	cache  *Cache
	epochs *Epochs
	logger zerolog.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(loader audio.Loader, cache *Cache, epochs *Epochs, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		loader: loader,
		cache:  cache,
		epochs: epochs,
		logger: logger.With().Str("component", "preload").Logger(),
	}
}

// Cache returns the pipeline's buffer cache.
func (p *Pipeline) Cache() *Cache {
	return p.cache
}

// Epochs returns the slot epochs the pipeline checks tokens against.
func (p *Pipeline) Epochs() *Epochs {
	return p.epochs
}

// Run ensures every path of job is cached. The token is checked around each
// load; once it is superseded Run returns ErrCancelled. Paths that fail to
// load are logged and skipped.
func (p *Pipeline) Run(ctx context.Context, job *sequence.Job, token Token) (res Result, err error) {
	start := time.Now()
	res.Job = job

	ctx, span := telemetry.StartSpan(ctx, "preload.run",
		attribute.String("job.id", job.ID),
		attribute.String("job.program", job.Program),
		attribute.String("slot", token.Slot.String()),
		attribute.Int64("epoch", int64(token.Epoch)),
	)
	defer func() {
		outcome := "ready"
		if errors.Is(err, ErrCancelled) {
			outcome = "cancelled"
		}
		res.Duration = time.Since(start)
		telemetry.PreloadDuration.WithLabelValues(token.Slot.String(), outcome).Observe(res.Duration.Seconds())
		span.SetAttributes(
			attribute.String("outcome", outcome),
			attribute.Int("loaded", res.Loaded),
			attribute.Int("failed", len(res.Failed)),
		)
		telemetry.EndSpan(span, err)
	}()

	logger := p.logger.With().
		Str("job_id", job.ID).
		Str("slot", token.Slot.String()).
		Uint64("epoch", token.Epoch).
		Logger()

	for _, path := range job.Paths() {
		if !p.epochs.Valid(token) {
			return res, ErrCancelled
		}
		if p.cache.Has(path) {
			res.Cached++
			continue
		}

		buf, loadErr := p.loader.Load(ctx, path)

		if !p.epochs.Valid(token) {
			// A buffer that finished loading stays reusable.
			if loadErr == nil {
				p.cache.Insert(path, buf)
			}
			return res, ErrCancelled
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if loadErr != nil {
			telemetry.LoadFailures.Inc()
			res.Failed = append(res.Failed, path)
			logger.Warn().Err(loadErr).Str("path", path).Msg("load failed, segment will be skipped")
			continue
		}
		p.cache.Insert(path, buf)
		res.Loaded++
	}

	logger.Debug().
		Int("loaded", res.Loaded).
		Int("cached", res.Cached).
		Int("failed", len(res.Failed)).
		Dur("took", time.Since(start)).
		Msg("job ready")
	return res, nil
}
