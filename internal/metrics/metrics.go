package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Publication sweeper
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpulse_sweep_runs_total",
			Help: "Publication sweeps by outcome (completed, skipped, failed)",
		},
		[]string{"outcome"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkpulse_sweep_duration_seconds",
			Help:    "Duration of a publication sweep in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PostsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpulse_posts_published_total",
			Help: "Scheduled posts transitioned to published, by trigger (sweep, read)",
		},
		[]string{"trigger"},
	)

	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpulse_publish_failures_total",
			Help: "External publish failures, by reason (timeout, breaker_open, error, storage)",
		},
		[]string{"reason"},
	)

	// Engagement
	PostImpressions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpulse_post_impressions_total",
			Help: "Post reads that incremented an impression counter",
		},
	)

	ReactionsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpulse_reactions_added_total",
			Help: "Reactions recorded, by kind",
		},
		[]string{"kind"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpulse_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkpulse_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)
