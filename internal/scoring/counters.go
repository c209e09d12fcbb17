// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package scoring

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/metrics"
	"github.com/tomtom215/coterie/internal/models"
)

// ErrCounterNotFound indicates the counter source has no window for the
// member. Treated as a skip, not a transient failure.
var ErrCounterNotFound = errors.New("activity counters not found")

// CounterSource supplies trailing-window activity counters. Implemented by
// the external event-log service client.
type CounterSource interface {
	WindowCounters(ctx context.Context, memberID string, windowDays int) (*models.ActivityCounters, error)
}

// BreakerSource wraps a CounterSource with a circuit breaker so a failing
// upstream trips fast instead of stalling every worker on timeouts.
type BreakerSource struct {
	inner   CounterSource
	breaker *gobreaker.CircuitBreaker[*models.ActivityCounters]
}

// NewBreakerSource wraps src with a circuit breaker configured from cfg.
func NewBreakerSource(src CounterSource, cfg config.BreakerConfig) *BreakerSource {
	settings := gobreaker.Settings{
		Name:        "counter-source",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CounterSourceBreakerState.Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			// A missing window is a data condition, not an upstream fault.
			return err == nil || errors.Is(err, ErrCounterNotFound)
		},
	}

	return &BreakerSource{
		inner:   src,
		breaker: gobreaker.NewCircuitBreaker[*models.ActivityCounters](settings),
	}
}

// WindowCounters implements CounterSource through the breaker.
func (b *BreakerSource) WindowCounters(ctx context.Context, memberID string, windowDays int) (*models.ActivityCounters, error) {
	counters, err := b.breaker.Execute(func() (*models.ActivityCounters, error) {
		return b.inner.WindowCounters(ctx, memberID, windowDays)
	})
	if err != nil {
		return nil, fmt.Errorf("counter source: %w", err)
	}
	return counters, nil
}

// State returns the current breaker state for monitoring.
func (b *BreakerSource) State() gobreaker.State {
	return b.breaker.State()
}
