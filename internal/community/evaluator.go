// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package community maintains the membership control loop: it aggregates tier
// counts into capacity snapshots and rotates persistently at-risk members
// through the waitlist.
package community

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/metrics"
	"github.com/tomtom215/coterie/internal/models"
)

// SnapshotStore is the subset of the database layer the evaluator needs.
type SnapshotStore interface {
	CountMembersByTier(ctx context.Context) (map[models.Tier]int, error)
	SaveSnapshot(ctx context.Context, s *models.CommunitySnapshot) error
	CountWaitlist(ctx context.Context) (int, error)
}

// Evaluator computes community-level capacity state from tier counts.
type Evaluator struct {
	store  SnapshotStore
	cfg    *config.TiersConfig
	logger zerolog.Logger
}

// NewEvaluator creates a community status evaluator.
func NewEvaluator(store SnapshotStore, cfg *config.TiersConfig, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "community").Logger(),
	}
}

// Evaluate aggregates current tier counts into a snapshot, persists it, and
// returns it. The ceiling is advisory: the snapshot flags over-capacity for
// the rotation loop and operators rather than rejecting anyone.
func (e *Evaluator) Evaluate(ctx context.Context) (*models.CommunitySnapshot, error) {
	counts, err := e.store.CountMembersByTier(ctx)
	if err != nil {
		return nil, fmt.Errorf("count members by tier: %w", err)
	}

	snapshot := &models.CommunitySnapshot{
		TierCounts: make(map[models.Tier]int, len(models.Tiers)),
		TierRatios: make(map[models.Tier]float64, len(models.Tiers)),
		TakenAt:    time.Now().UTC(),
	}

	total := 0
	for _, tier := range models.Tiers {
		snapshot.TierCounts[tier] = counts[tier]
		total += counts[tier]
	}
	snapshot.TotalMembers = total

	for _, tier := range models.Tiers {
		if total > 0 {
			snapshot.TierRatios[tier] = float64(snapshot.TierCounts[tier]) / float64(total) * 100
		} else {
			snapshot.TierRatios[tier] = 0
		}
	}

	snapshot.IsOverCapacity = total > e.cfg.Ceiling
	snapshot.NeedsRebalancing = e.needsRebalancing(snapshot.TierRatios)

	if err := e.store.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	for tier, count := range snapshot.TierCounts {
		metrics.CommunityMembers.WithLabelValues(string(tier)).Set(float64(count))
	}
	if snapshot.IsOverCapacity {
		metrics.CommunityOverCapacity.Set(1)
	} else {
		metrics.CommunityOverCapacity.Set(0)
	}
	if waitlisted, err := e.store.CountWaitlist(ctx); err == nil {
		metrics.WaitlistSize.Set(float64(waitlisted))
	}

	e.logger.Info().
		Int("total", total).
		Bool("over_capacity", snapshot.IsOverCapacity).
		Bool("needs_rebalancing", snapshot.NeedsRebalancing).
		Msg("Community snapshot taken")

	return snapshot, nil
}

// needsRebalancing reports whether any tier ratio sits outside the dead-band
// around its target. An empty community never needs rebalancing.
func (e *Evaluator) needsRebalancing(ratios map[models.Tier]float64) bool {
	targets := map[models.Tier]float64{
		models.TierActive: e.cfg.TargetActivePct,
		models.TierWatch:  e.cfg.TargetWatchPct,
		models.TierRisk:   e.cfg.TargetRiskPct,
	}

	empty := true
	for _, ratio := range ratios {
		if ratio != 0 {
			empty = false
			break
		}
	}
	if empty {
		return false
	}

	for tier, target := range targets {
		deviation := ratios[tier] - target
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > e.cfg.TolerancePct {
			return true
		}
	}
	return false
}
