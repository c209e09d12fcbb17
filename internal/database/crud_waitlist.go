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

// GetWaitlistEntry retrieves a waitlist entry by member ID.
func (db *DB) GetWaitlistEntry(ctx context.Context, memberID string) (*models.WaitlistEntry, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT member_id, reason, score_when_moved, can_reapply_after,
		priority_score, created_at
	FROM waitlist WHERE member_id = ?`

	e := &models.WaitlistEntry{}
	err := db.conn.QueryRowContext(ctx, query, memberID).Scan(
		&e.MemberID, &e.Reason, &e.ScoreWhenMoved, &e.CanReapplyAfter,
		&e.PriorityScore, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry for %s: %w", memberID, err)
	}
	return e, nil
}

// EligibleWaitlistEntries returns entries whose cooldown has elapsed, ordered
// by priority score descending with creation time as the tiebreak, limited to
// the given count. This is the replenishment pull order.
func (db *DB) EligibleWaitlistEntries(ctx context.Context, now time.Time, limit int) ([]models.WaitlistEntry, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT member_id, reason, score_when_moved, can_reapply_after,
		priority_score, created_at
	FROM waitlist
	WHERE can_reapply_after <= ?
	ORDER BY priority_score DESC, created_at ASC
	LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible waitlist entries: %w", err)
	}
	defer rows.Close()

	var entries []models.WaitlistEntry
	for rows.Next() {
		var e models.WaitlistEntry
		if err := rows.Scan(&e.MemberID, &e.Reason, &e.ScoreWhenMoved,
			&e.CanReapplyAfter, &e.PriorityScore, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate waitlist entries: %w", err)
	}
	return entries, nil
}

// CountWaitlist returns the current waitlist size.
func (db *DB) CountWaitlist(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count waitlist: %w", err)
	}
	return count, nil
}
