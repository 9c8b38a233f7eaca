/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package weather resolves the current weather condition and the weather report
// clip that matches it.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/luizarrieira/radio-lrr-iv/internal/cache"
)

// DefaultBaseURL is the OpenWeatherMap current weather endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Provider reports the current weather condition, e.g. "Clouds" or "Rain".
type Provider interface {
	Current() string
}

// Static always reports the same condition.
type Static string

// Current implements Provider.
func (s Static) Current() string { return string(s) }

// Config configures an OpenWeatherMap poller.
type Config struct {
	APIKey   string
	City     string
	Refresh  time.Duration
	Fallback string
	BaseURL  string
}

// Poller periodically fetches the condition for a city from OpenWeatherMap.
// Until the first successful fetch, and after failures, it reports the fallback.
type Poller struct {
	cfg    Config
	client *http.Client
	shared *cache.Cache
	logger zerolog.Logger

	mu        sync.RWMutex
	condition string
}

// NewPoller creates a poller. shared may be nil.
func NewPoller(cfg Config, shared *cache.Cache, logger zerolog.Logger) *Poller {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Fallback == "" {
		cfg.Fallback = "Clear"
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 10 * time.Minute
	}
	return &Poller{
		cfg: cfg,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		shared:    shared,
		logger:    logger.With().Str("component", "weather").Str("city", cfg.City).Logger(),
		condition: cfg.Fallback,
	}
}

// Current implements Provider.
func (p *Poller) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.condition
}

// Run refreshes immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)

	ticker := time.NewTicker(p.cfg.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh updates the condition once, preferring a fresh shared cache entry.
func (p *Poller) Refresh(ctx context.Context) {
	if p.shared != nil {
		if w, ok := p.shared.GetWeather(ctx, p.cfg.City); ok && time.Since(w.ObservedAt) < p.cfg.Refresh {
			p.set(w.Condition)
			return
		}
	}

	var condition string
	op := func() error {
		c, err := p.fetch(ctx)
		if err != nil {
			return err
		}
		condition = c
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		p.logger.Warn().Err(err).Str("fallback", p.cfg.Fallback).Msg("weather fetch failed")
		p.set(p.cfg.Fallback)
		return
	}

	p.set(condition)
	if p.shared != nil {
		if err := p.shared.SetWeather(ctx, p.cfg.City, cache.CachedWeather{Condition: condition, ObservedAt: time.Now()}); err != nil {
			p.logger.Debug().Err(err).Msg("failed to share weather condition")
		}
	}
}

func (p *Poller) set(condition string) {
	p.mu.Lock()
	changed := p.condition != condition
	p.condition = condition
	p.mu.Unlock()
	if changed {
		p.logger.Info().Str("condition", condition).Msg("weather condition updated")
	}
}

type owmResponse struct {
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

var errNoCondition = errors.New("response carries no weather condition")

func (p *Poller) fetch(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("q", p.cfg.City)
	q.Set("appid", p.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
		return "", backoff.Permanent(fmt.Errorf("weather api returned %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("weather api returned %s", resp.Status)
	}

	var body owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode weather response: %w", err))
	}
	if len(body.Weather) == 0 || body.Weather[0].Main == "" {
		return "", backoff.Permanent(errNoCondition)
	}
	return body.Weather[0].Main, nil
}
