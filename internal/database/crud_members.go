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
	"time"

	"github.com/tomtom215/coterie/internal/models"
)

// UpsertMember inserts or updates a member capacity record.
func (db *DB) UpsertMember(ctx context.Context, m *models.Member) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}

	query := `INSERT INTO members (
		id, current_tier, tier_entered_at, health_score,
		warning_sent_at, risk_tier_started_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		current_tier = excluded.current_tier,
		tier_entered_at = excluded.tier_entered_at,
		health_score = excluded.health_score,
		warning_sent_at = excluded.warning_sent_at,
		risk_tier_started_at = excluded.risk_tier_started_at,
		updated_at = excluded.updated_at`

	_, err := db.conn.ExecContext(ctx, query,
		m.ID, string(m.CurrentTier), m.TierEnteredAt, m.HealthScore,
		m.WarningSentAt, m.RiskTierStartedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member %s: %w", m.ID, err)
	}
	return nil
}

// GetMember retrieves a member capacity record by ID.
// Returns ErrNotFound when the member has no record (e.g. waitlisted).
func (db *DB) GetMember(ctx context.Context, id string) (*models.Member, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, current_tier, tier_entered_at, health_score,
		warning_sent_at, risk_tier_started_at, updated_at
	FROM members WHERE id = ?`

	m, err := scanMember(db.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get member %s: %w", id, err)
	}
	return m, nil
}

// ListMembersByTier returns all member records in the given tier.
func (db *DB) ListMembersByTier(ctx context.Context, tier models.Tier) ([]models.Member, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, current_tier, tier_entered_at, health_score,
		warning_sent_at, risk_tier_started_at, updated_at
	FROM members WHERE current_tier = ? ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query, string(tier))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s members: %w", tier, err)
	}
	defer rows.Close()

	return collectMembers(rows)
}

// ListRiskMembersByScore returns risk-tier members ordered by health score
// ascending. Used by the emergency rebalance to pick the lowest scorers.
func (db *DB) ListRiskMembersByScore(ctx context.Context, limit int) ([]models.Member, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, current_tier, tier_entered_at, health_score,
		warning_sent_at, risk_tier_started_at, updated_at
	FROM members WHERE current_tier = ?
	ORDER BY health_score ASC, id ASC LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, string(models.TierRisk), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk members by score: %w", err)
	}
	defer rows.Close()

	return collectMembers(rows)
}

// CountMembersByTier returns the per-tier member counts.
func (db *DB) CountMembersByTier(ctx context.Context) (map[models.Tier]int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT current_tier, COUNT(*) FROM members GROUP BY current_tier`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count members by tier: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Tier]int, len(models.Tiers))
	for _, t := range models.Tiers {
		counts[t] = 0
	}
	for rows.Next() {
		var tier string
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tier count: %w", err)
		}
		counts[models.Tier(tier)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tier counts: %w", err)
	}
	return counts, nil
}

// UpsertActivityScore inserts or updates the derived score for a member.
// Scores carry no history; each evaluation overwrites the previous window.
func (db *DB) UpsertActivityScore(ctx context.Context, s *models.ActivityScore) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO activity_scores (
		member_id, daily_post_score, engagement_score,
		community_contribution_score, login_consistency_score,
		overall_health_score, calculated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (member_id) DO UPDATE SET
		daily_post_score = excluded.daily_post_score,
		engagement_score = excluded.engagement_score,
		community_contribution_score = excluded.community_contribution_score,
		login_consistency_score = excluded.login_consistency_score,
		overall_health_score = excluded.overall_health_score,
		calculated_at = excluded.calculated_at`

	_, err := db.conn.ExecContext(ctx, query,
		s.MemberID, s.DailyPostScore, s.EngagementScore,
		s.CommunityContributionScore, s.LoginConsistencyScore,
		s.OverallHealthScore, s.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert activity score for %s: %w", s.MemberID, err)
	}
	return nil
}

// GetActivityScore retrieves the current score for a member.
func (db *DB) GetActivityScore(ctx context.Context, memberID string) (*models.ActivityScore, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT member_id, daily_post_score, engagement_score,
		community_contribution_score, login_consistency_score,
		overall_health_score, calculated_at
	FROM activity_scores WHERE member_id = ?`

	s := &models.ActivityScore{}
	err := db.conn.QueryRowContext(ctx, query, memberID).Scan(
		&s.MemberID, &s.DailyPostScore, &s.EngagementScore,
		&s.CommunityContributionScore, &s.LoginConsistencyScore,
		&s.OverallHealthScore, &s.CalculatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity score for %s: %w", memberID, err)
	}
	return s, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(r rowScanner) (*models.Member, error) {
	m := &models.Member{}
	var tier string
	var warningSentAt, riskStartedAt sql.NullTime

	if err := r.Scan(&m.ID, &tier, &m.TierEnteredAt, &m.HealthScore,
		&warningSentAt, &riskStartedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}

	m.CurrentTier = models.Tier(tier)
	if warningSentAt.Valid {
		t := warningSentAt.Time
		m.WarningSentAt = &t
	}
	if riskStartedAt.Valid {
		t := riskStartedAt.Time
		m.RiskTierStartedAt = &t
	}
	return m, nil
}

func collectMembers(rows *sql.Rows) ([]models.Member, error) {
	var members []models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}
