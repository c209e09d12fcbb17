// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/coterie/internal/models"
)

// SaveSnapshot persists a community snapshot. Snapshots are append-only; the
// read API serves the latest one.
func (db *DB) SaveSnapshot(ctx context.Context, s *models.CommunitySnapshot) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO community_snapshots (
		taken_at, total_members, active_count, watch_count, risk_count,
		is_over_capacity, needs_rebalancing
	) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		s.TakenAt, s.TotalMembers,
		s.TierCounts[models.TierActive],
		s.TierCounts[models.TierWatch],
		s.TierCounts[models.TierRisk],
		s.IsOverCapacity, s.NeedsRebalancing,
	)
	if err != nil {
		return fmt.Errorf("failed to save community snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent community snapshot.
func (db *DB) LatestSnapshot(ctx context.Context) (*models.CommunitySnapshot, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT taken_at, total_members, active_count, watch_count,
		risk_count, is_over_capacity, needs_rebalancing
	FROM community_snapshots
	ORDER BY taken_at DESC LIMIT 1`

	s := &models.CommunitySnapshot{
		TierCounts: make(map[models.Tier]int, len(models.Tiers)),
		TierRatios: make(map[models.Tier]float64, len(models.Tiers)),
	}
	var active, watch, risk int

	err := db.conn.QueryRowContext(ctx, query).Scan(
		&s.TakenAt, &s.TotalMembers, &active, &watch, &risk,
		&s.IsOverCapacity, &s.NeedsRebalancing,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	s.TierCounts[models.TierActive] = active
	s.TierCounts[models.TierWatch] = watch
	s.TierCounts[models.TierRisk] = risk
	if s.TotalMembers > 0 {
		for t, c := range s.TierCounts {
			s.TierRatios[t] = float64(c) / float64(s.TotalMembers) * 100
		}
	} else {
		for _, t := range models.Tiers {
			s.TierRatios[t] = 0
		}
	}
	return s, nil
}
