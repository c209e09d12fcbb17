// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package metrics defines the Prometheus metrics exported by Coterie.
// Metrics are exposed at /metrics in Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scoring batch metrics.

	ScoringRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_run_duration_seconds",
			Help:    "Duration of full-population scoring runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	ScoringMembersEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_members_evaluated_total",
			Help: "Total number of member evaluations completed",
		},
	)

	ScoringFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_failures_total",
			Help: "Total number of per-member evaluation failures",
		},
		[]string{"reason"}, // "counter_source", "persist"
	)

	TierTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tier_transitions_total",
			Help: "Total number of member tier transitions",
		},
		[]string{"from", "to"},
	)

	// Rotation control-loop metrics.

	RotationRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rotation_run_duration_seconds",
			Help:    "Duration of rotation control-loop passes in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	RotationWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rotation_warnings_total",
			Help: "Total number of eviction warnings sent",
		},
	)

	RotationEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rotation_evictions_total",
			Help: "Total number of members evicted to the waitlist",
		},
		[]string{"kind"}, // "grace", "emergency"
	)

	RotationReactivations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rotation_reactivations_total",
			Help: "Total number of members reactivated from the waitlist",
		},
	)

	RotationMemberFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rotation_member_failures_total",
			Help: "Total number of per-member rotation transaction failures",
		},
	)

	RotationLeaseContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rotation_lease_contention_total",
			Help: "Total number of control-loop runs skipped because the lease was held",
		},
	)

	CommunityMembers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "community_members",
			Help: "Current member count per tier",
		},
		[]string{"tier"},
	)

	CommunityOverCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "community_over_capacity",
			Help: "1 when total membership exceeds the ceiling, 0 otherwise",
		},
	)

	WaitlistSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitlist_size",
			Help: "Current number of waitlist entries",
		},
	)

	// Highlight selection metrics.

	HighlightRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "highlight_refresh_duration_seconds",
			Help:    "Duration of highlight refresh runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	HighlightCandidatePool = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "highlight_candidate_pool_size",
			Help:    "Size of the candidate pool per highlight refresh",
			Buckets: []float64{1, 3, 5, 10, 20, 50, 100},
		},
	)

	// Notification metrics.

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications attempted",
		},
		[]string{"kind", "outcome"},
	)

	// Counter source circuit breaker state: 0=closed, 1=open, 2=half-open.
	CounterSourceBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "counter_source_breaker_state",
			Help: "Circuit breaker state of the activity counter source (0=closed, 1=open, 2=half-open)",
		},
	)
)
