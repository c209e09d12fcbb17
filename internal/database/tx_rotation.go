// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/coterie/internal/models"
)

// EvictMember performs the eviction unit of work in a single transaction:
// create the waitlist entry, delete the member's capacity and score records,
// and append the audit entry. A crash can therefore never leave a member
// simultaneously active and waitlisted, nor a dangling score record for a
// waitlisted member.
//
// The member directory status update happens outside this transaction; the
// absence of the member record is the rerun guard against double eviction.
func (db *DB) EvictMember(ctx context.Context, entry *models.WaitlistEntry, logEntry *models.RotationLogEntry) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		insertWaitlist := `INSERT INTO waitlist (
			member_id, reason, score_when_moved, can_reapply_after,
			priority_score, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insertWaitlist,
			entry.MemberID, entry.Reason, entry.ScoreWhenMoved,
			entry.CanReapplyAfter, entry.PriorityScore, entry.CreatedAt); err != nil {
			return fmt.Errorf("insert waitlist entry for %s: %w", entry.MemberID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM activity_scores WHERE member_id = ?`, entry.MemberID); err != nil {
			return fmt.Errorf("delete activity score for %s: %w", entry.MemberID, err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM members WHERE id = ?`, entry.MemberID)
		if err != nil {
			return fmt.Errorf("delete member record for %s: %w", entry.MemberID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("member %s has no capacity record: %w", entry.MemberID, ErrNotFound)
		}

		return appendRotationLogTx(ctx, tx, logEntry)
	})
}

// ReactivateMember performs the replenishment unit of work in a single
// transaction: recreate the member capacity record in the active tier with a
// fresh zeroed score, delete the waitlist entry, and append the audit entry.
func (db *DB) ReactivateMember(ctx context.Context, member *models.Member, score *models.ActivityScore, logEntry *models.RotationLogEntry) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM waitlist WHERE member_id = ?`, member.ID)
		if err != nil {
			return fmt.Errorf("delete waitlist entry for %s: %w", member.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("member %s has no waitlist entry: %w", member.ID, ErrNotFound)
		}

		insertMember := `INSERT INTO members (
			id, current_tier, tier_entered_at, health_score,
			warning_sent_at, risk_tier_started_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insertMember,
			member.ID, string(member.CurrentTier), member.TierEnteredAt,
			member.HealthScore, member.WarningSentAt, member.RiskTierStartedAt,
			member.UpdatedAt); err != nil {
			return fmt.Errorf("insert member record for %s: %w", member.ID, err)
		}

		insertScore := `INSERT INTO activity_scores (
			member_id, daily_post_score, engagement_score,
			community_contribution_score, login_consistency_score,
			overall_health_score, calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insertScore,
			score.MemberID, score.DailyPostScore, score.EngagementScore,
			score.CommunityContributionScore, score.LoginConsistencyScore,
			score.OverallHealthScore, score.CalculatedAt); err != nil {
			return fmt.Errorf("insert activity score for %s: %w", score.MemberID, err)
		}

		return appendRotationLogTx(ctx, tx, logEntry)
	})
}

// appendRotationLogTx writes an audit entry inside an existing transaction.
func appendRotationLogTx(ctx context.Context, tx *sql.Tx, e *models.RotationLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query := `INSERT INTO rotation_log (
		id, member_id, action_type, from_tier, to_tier,
		reason, score_at_action, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, query,
		e.ID, e.MemberID, string(e.ActionType), nullableTier(e.FromTier),
		nullableTier(e.ToTier), e.Reason, e.ScoreAtAction, e.Timestamp); err != nil {
		return fmt.Errorf("append rotation log entry for %s: %w", e.MemberID, err)
	}
	return nil
}

// nullableTier converts an empty tier to NULL for storage.
func nullableTier(t models.Tier) any {
	if t == "" {
		return nil
	}
	return string(t)
}
