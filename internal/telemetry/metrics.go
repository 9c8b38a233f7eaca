/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "radio"

var (
	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Control surface requests by method, route and status.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Control surface request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_active_connections",
		Help:      "In-flight control surface requests.",
	})

	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_websocket_connections",
		Help:      "Open event websocket connections.",
	})

	// Sequencer metrics
	JobsComposed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_composed_total",
		Help:      "Composed jobs by program and pattern.",
	}, []string{"program", "pattern"})

	PreloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "preload_duration_seconds",
		Help:      "Time to preload a job, by slot and outcome.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"slot", "outcome"})

	LoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "load_failures_total",
		Help:      "Content paths that failed to fetch or decode.",
	})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "buffer_cache_entries",
		Help:      "Decoded buffers held in memory.",
	})

	ObjectCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "object_cache_requests_total",
		Help:      "Shared byte cache lookups by result.",
	}, []string{"result"})

	SegmentsPlayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_played_total",
		Help:      "Played segments by kind.",
	}, []string{"kind"})

	SegmentsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_skipped_total",
		Help:      "Segments skipped because their buffer was missing.",
	}, []string{"kind"})

	Starvations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "starvations_total",
		Help:      "Times the loop found no ready job and had to wait.",
	})

	ProgramSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "program_switches_total",
		Help:      "Program switch requests by outcome.",
	}, []string{"outcome"})

	DuckActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "duck_active_narrations",
		Help:      "Narrations currently holding the music duck.",
	})

	// Event fan-out metrics
	EventsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_forwarded_total",
		Help:      "Events handed to the external broker by result.",
	}, []string{"event_type", "result"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
